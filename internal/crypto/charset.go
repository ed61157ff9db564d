package crypto

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	numberChars    = "0123456789"
	symbolChars    = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

var ErrUnknownClass = errors.New("unknown character class")

// CharacterClass names one of the fixed character subsets.
type CharacterClass int

const (
	Uppercase CharacterClass = iota
	Lowercase
	Numbers
	Symbols
)

// AllClasses lists every class in canonical alphabet order.
var AllClasses = []CharacterClass{Uppercase, Lowercase, Numbers, Symbols}

// ClassSet is the set of enabled character classes.
type ClassSet = mapset.Set[CharacterClass]

// NewClassSet returns a set holding the given classes.
func NewClassSet(classes ...CharacterClass) ClassSet {
	return mapset.NewThreadUnsafeSet(classes...)
}

// Chars returns the fixed character set of the class.
func (c CharacterClass) Chars() string {
	switch c {
	case Uppercase:
		return uppercaseChars
	case Lowercase:
		return lowercaseChars
	case Numbers:
		return numberChars
	case Symbols:
		return symbolChars
	}
	return ""
}

// String returns the wire name used in requests and responses.
func (c CharacterClass) String() string {
	switch c {
	case Uppercase:
		return "uppercase"
	case Lowercase:
		return "lowercase"
	case Numbers:
		return "numbers"
	case Symbols:
		return "symbols"
	}
	return "unknown"
}

// Label returns the human readable checkbox label.
func (c CharacterClass) Label() string {
	switch c {
	case Uppercase:
		return "Uppercase (A-Z)"
	case Lowercase:
		return "Lowercase (a-z)"
	case Numbers:
		return "Numbers (0-9)"
	case Symbols:
		return "Symbols (!@#$%...)"
	}
	return ""
}

// ParseCharacterClass maps a wire name back to its class. Matching is case-insensitive.
func ParseCharacterClass(name string) (CharacterClass, error) {
	for _, c := range AllClasses {
		if strings.EqualFold(name, c.String()) {
			return c, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownClass, "parse %q", name)
}

// BuildAlphabet concatenates the character sets of the enabled classes in
// canonical order. It returns "" when classes is nil or empty.
func BuildAlphabet(classes ClassSet) string {
	if classes == nil {
		return ""
	}

	var sb strings.Builder
	for _, c := range AllClasses {
		if classes.Contains(c) {
			sb.WriteString(c.Chars())
		}
	}
	return sb.String()
}
