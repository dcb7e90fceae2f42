package fleet

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/database"
)

// Fixture is a YAML description of a fleet, used to seed a registry.
//
// Example:
//
//	organizations:
//	  - name: Acme
//	    trailers:
//	      - name: T1
//	        location: Depot
//	        bikes: [{name: b1}]
//	        ovens: [{name: o1, max_temp_c: 450}]
//	        microgrids: [{name: m1, capacity_w: 3000}]
type Fixture struct {
	Organizations []OrganizationFixture `yaml:"organizations"`
}

// OrganizationFixture is one organization and its trailers.
type OrganizationFixture struct {
	Organization `yaml:",inline"`
	Trailers     []TrailerFixture `yaml:"trailers"`
}

// TrailerFixture is one trailer and its devices.
type TrailerFixture struct {
	Trailer    `yaml:",inline"`
	Bikes      []Bike           `yaml:"bikes"`
	Ovens      []Oven           `yaml:"ovens"`
	Microgrids []SolarMicrogrid `yaml:"microgrids"`
}

// SeedResult counts the rows created by Seed.
type SeedResult struct {
	Organizations int `json:"organizations"`
	Trailers      int `json:"trailers"`
	Bikes         int `json:"bikes"`
	Ovens         int `json:"ovens"`
	Microgrids    int `json:"microgrids"`
}

// LoadFixture reads and parses a fleet fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML. Unknown keys are rejected.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

// Seed inserts every entity in the fixture, parents before children.
// Ids in the fixture are ignored; new ids are assigned by the stores.
func (r *Registry) Seed(ctx context.Context, f *Fixture) (SeedResult, error) {
	var res SeedResult
	for _, of := range f.Organizations {
		org := of.Organization
		if err := r.Organizations.Insert(ctx, &org); err != nil {
			return res, fmt.Errorf("seeding organization %q: %w", org.Name, err)
		}
		res.Organizations++

		for _, tf := range of.Trailers {
			trailer := tf.Trailer
			trailer.OrgID = org.ID
			if err := r.Trailers.Insert(ctx, &trailer); err != nil {
				return res, fmt.Errorf("seeding trailer %q: %w", trailer.Name, err)
			}
			res.Trailers++

			for _, b := range tf.Bikes {
				b.TrailerID = trailer.ID
				if err := r.Bikes.Insert(ctx, &b); err != nil {
					return res, fmt.Errorf("seeding bike %q: %w", b.Name, err)
				}
				res.Bikes++
			}
			for _, o := range tf.Ovens {
				o.TrailerID = trailer.ID
				if err := r.Ovens.Insert(ctx, &o); err != nil {
					return res, fmt.Errorf("seeding oven %q: %w", o.Name, err)
				}
				res.Ovens++
			}
			for _, m := range tf.Microgrids {
				m.TrailerID = trailer.ID
				if err := r.Microgrids.Insert(ctx, &m); err != nil {
					return res, fmt.Errorf("seeding microgrid %q: %w", m.Name, err)
				}
				res.Microgrids++
			}
		}
	}
	return res, nil
}

// SeedSQLite seeds db inside a single transaction, so a bad fixture leaves
// the registry untouched.
func SeedSQLite(ctx context.Context, db *sql.DB, f *Fixture) (SeedResult, error) {
	var res SeedResult
	err := database.InTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		res, err = NewSQLiteRegistry(tx).Seed(ctx, f)
		return err
	})
	if err != nil {
		return SeedResult{}, err
	}
	return res, nil
}
