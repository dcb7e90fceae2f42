package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which device table an Address refers to.
type Kind uint8

// Device kinds. The zero Kind is invalid.
const (
	KindBike Kind = iota + 1
	KindOven
	KindMicrogrid
)

// Kinds lists every valid Kind in declaration order.
var Kinds = []Kind{KindBike, KindOven, KindMicrogrid}

var kindNames = map[Kind]string{
	KindBike:      "bike",
	KindOven:      "oven",
	KindMicrogrid: "microgrid",
}

// String returns the lowercase kind name used in URLs, topics and JSON.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts a kind name ("bike", "oven", "microgrid") to a Kind.
// Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidAddress, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Address identifies one device's telemetry stream.
//
// The kind and id travel together and cannot be set independently, so an
// Address is only built through Bike, Oven, Microgrid or ParseAddress.
// Addresses are comparable and usable as map keys.
type Address struct {
	kind Kind
	id   int64
}

// Bike returns the Address of the bike with the given id.
func Bike(id int64) Address { return Address{kind: KindBike, id: id} }

// Oven returns the Address of the oven with the given id.
func Oven(id int64) Address { return Address{kind: KindOven, id: id} }

// Microgrid returns the Address of the solar microgrid with the given id.
func Microgrid(id int64) Address { return Address{kind: KindMicrogrid, id: id} }

// NewAddress builds an Address from an already-parsed Kind.
func NewAddress(kind Kind, id int64) (Address, error) {
	if !kind.Valid() {
		return Address{}, fmt.Errorf("%w: %s", ErrInvalidAddress, kind)
	}
	if id <= 0 {
		return Address{}, fmt.Errorf("%w: id must be positive, got %d", ErrInvalidAddress, id)
	}
	return Address{kind: kind, id: id}, nil
}

// ParseAddress builds an Address from a kind name and a device id.
func ParseAddress(kind string, id int64) (Address, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Address{}, err
	}
	return NewAddress(k, id)
}

// Kind returns the device kind.
func (a Address) Kind() Kind { return a.kind }

// RawID returns the numeric device id within its kind.
func (a Address) RawID() int64 { return a.id }

// IsZero reports whether a is the zero Address.
func (a Address) IsZero() bool { return a == Address{} }

// String renders the address as "kind/id", for example "bike/5".
func (a Address) String() string {
	return a.kind.String() + "/" + strconv.FormatInt(a.id, 10)
}

type addressJSON struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// MarshalJSON encodes the address as {"kind":"bike","id":5}.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{Kind: a.kind, ID: a.id})
}

// UnmarshalJSON decodes {"kind":"bike","id":5} and validates it.
func (a *Address) UnmarshalJSON(data []byte) error {
	var raw addressJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	addr, err := NewAddress(raw.Kind, raw.ID)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
