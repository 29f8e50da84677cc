package recording

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownImportance is returned for importance names or IDs outside the enum
var ErrUnknownImportance = errors.New("recording: unknown marker importance")

// Importance orders markers for display and filtering. It never affects how
// markers are merged.
type Importance int32

const (
	Trivial Importance = iota
	Low
	Normal
	High
	Critical
)

var importanceNames = [...]string{"TRIVIAL", "LOW", "NORMAL", "HIGH", "CRITICAL"}

// Importances lists every level from least to most important
func Importances() []Importance {
	return []Importance{Trivial, Low, Normal, High, Critical}
}

func (i Importance) String() string {
	if i.Valid() {
		return importanceNames[i]
	}
	return fmt.Sprintf("Importance(%d)", int32(i))
}

// Valid reports whether i is one of the defined levels
func (i Importance) Valid() bool {
	return i >= Trivial && i <= Critical
}

// ID returns the stable numeric ID written to recording files
func (i Importance) ID() int32 {
	return int32(i)
}

// ImportanceForID returns the level with the given ID
func ImportanceForID(id int32) (Importance, error) {
	i := Importance(id)
	if !i.Valid() {
		return 0, fmt.Errorf("%w: id %d", ErrUnknownImportance, id)
	}
	return i, nil
}

// ParseImportance parses a level name, ignoring case
func ParseImportance(s string) (Importance, error) {
	for i, name := range importanceNames {
		if strings.EqualFold(s, name) {
			return Importance(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownImportance, s)
}

func (i Importance) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownImportance, int32(i))
	}
	return []byte(i.String()), nil
}

func (i *Importance) UnmarshalText(text []byte) error {
	v, err := ParseImportance(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}
