package fleet

import (
	"fmt"
	"strings"
)

const (
	maxNameLength = 100

	// maxOvenTempC matches the telemetry ceiling for oven readings.
	maxOvenTempC = 1000.0
)

func validateName(field, name string, required bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		if required {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidEntity, field)
		}
		return nil
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidEntity, field, maxNameLength)
	}
	return nil
}

func validateParent(field string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidEntity, field)
	}
	return nil
}

// Validate checks an organization before insert.
func (o *Organization) Validate() error {
	return validateName("name", o.Name, true)
}

// Validate checks a trailer before insert.
func (t *Trailer) Validate() error {
	if err := validateName("name", t.Name, true); err != nil {
		return err
	}
	if err := validateName("location", t.Location, false); err != nil {
		return err
	}
	return validateParent("org_id", t.OrgID)
}

// Validate checks a bike before insert.
func (b *Bike) Validate() error {
	if err := validateName("name", b.Name, false); err != nil {
		return err
	}
	return validateParent("trailer_id", b.TrailerID)
}

// Validate checks an oven before insert.
func (o *Oven) Validate() error {
	if err := validateName("name", o.Name, false); err != nil {
		return err
	}
	if o.MaxTempC != nil && (*o.MaxTempC <= 0 || *o.MaxTempC > maxOvenTempC) {
		return fmt.Errorf("%w: max_temp_c must be in (0, %g]", ErrInvalidEntity, maxOvenTempC)
	}
	return validateParent("trailer_id", o.TrailerID)
}

// Validate checks a microgrid before insert.
func (m *SolarMicrogrid) Validate() error {
	if err := validateName("name", m.Name, false); err != nil {
		return err
	}
	if m.CapacityW != nil && *m.CapacityW < 0 {
		return fmt.Errorf("%w: capacity_w must be >= 0", ErrInvalidEntity)
	}
	return validateParent("trailer_id", m.TrailerID)
}
