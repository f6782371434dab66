// Package genre defines the closed set of music genres a user can pick.
package genre

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/justestif/daily-song/internal/shared"
)

// ErrUnknown is returned when text does not name a supported genre.
var ErrUnknown = fmt.Errorf("%w: unknown genre", shared.ErrInvalidInput)

// Genre is one of the supported recommendation seeds.
// The zero value is Unknown and is never accepted by the store.
type Genre int

const (
	Unknown Genre = iota
	Pop
	Rock
	Metal
)

var names = map[Genre]string{
	Pop:   "pop",
	Rock:  "rock",
	Metal: "metal",
}

// All returns every valid genre in declaration order.
func All() []Genre {
	return []Genre{Pop, Rock, Metal}
}

// Parse maps text to a Genre, ignoring case and surrounding whitespace.
func Parse(s string) (Genre, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for g, name := range names {
		if name == key {
			return g, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknown, s)
}

// Valid reports whether g is one of the supported genres.
func (g Genre) Valid() bool {
	_, ok := names[g]
	return ok
}

// String returns the lowercase provider seed name, or "unknown".
func (g Genre) String() string {
	if name, ok := names[g]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (g Genre) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Genre) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Value implements driver.Valuer. Unknown cannot be written.
func (g Genre) Value() (driver.Value, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: refusing to store %d", ErrUnknown, int(g))
	}
	return g.String(), nil
}

// Scan implements sql.Scanner.
func (g *Genre) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return g.UnmarshalText([]byte(v))
	case []byte:
		return g.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrUnknown, src)
	}
}
