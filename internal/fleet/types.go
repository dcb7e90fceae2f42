package fleet

// Organization is the root of ownership.
type Organization struct {
	ID   int64  `json:"id" yaml:"-"`
	Name string `json:"name" yaml:"name"`
}

// Trailer is a mobile unit owned by an organization.
type Trailer struct {
	ID       int64  `json:"id" yaml:"-"`
	Name     string `json:"name" yaml:"name"`
	Location string `json:"location" yaml:"location"`
	OrgID    int64  `json:"org_id" yaml:"-"`
}

// Bike is a pedal generator carried on a trailer.
type Bike struct {
	ID        int64  `json:"id" yaml:"-"`
	TrailerID int64  `json:"trailer_id" yaml:"-"`
	Name      string `json:"name" yaml:"name"`
}

// Oven is a cooking unit carried on a trailer.
type Oven struct {
	ID        int64    `json:"id" yaml:"-"`
	TrailerID int64    `json:"trailer_id" yaml:"-"`
	Name      string   `json:"name" yaml:"name"`
	MaxTempC  *float64 `json:"max_temp_c,omitempty" yaml:"max_temp_c"`
}

// SolarMicrogrid is a solar array with battery storage carried on a trailer.
type SolarMicrogrid struct {
	ID        int64    `json:"id" yaml:"-"`
	TrailerID int64    `json:"trailer_id" yaml:"-"`
	Name      string   `json:"name" yaml:"name"`
	CapacityW *float64 `json:"capacity_w,omitempty" yaml:"capacity_w"`
}
