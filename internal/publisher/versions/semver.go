package versions

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidVersion indicates a version string is not a dotted numeric triple.
var ErrInvalidVersion = errors.New("versions: version must look like major.minor.patch")

// ErrVersionOverflow indicates a bump would exceed the largest representable component.
var ErrVersionOverflow = errors.New("versions: version component is too large to bump")

// Number is a parsed major.minor.patch triple. Widths remember the zero padding of each
// component so "1.07.0" bumps to "1.08.0" rather than "1.8.0".
type Number struct {
	Major, Minor, Patch int
	widths             [3]int
}

// ParseNumber parses a dotted triple. A leading "v" is tolerated.
func ParseNumber(raw string) (Number, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Number{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
	}
	var n Number
	values := make([]int, 3)
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return Number{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return Number{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
		}
		values[i] = v
		n.widths[i] = len(part)
	}
	n.Major, n.Minor, n.Patch = values[0], values[1], values[2]
	return n, nil
}

// Next returns the successor for the given release type. It fails with
// ErrVersionOverflow when the bumped component is already math.MaxInt.
func (n Number) Next(t Type) (Number, error) {
	out := n
	bumped := &out.Patch
	switch t {
	case TypeMajor:
		bumped = &out.Major
		out.Minor, out.Patch = 0, 0
	case TypeMinor:
		bumped = &out.Minor
		out.Patch = 0
	}
	if *bumped == math.MaxInt {
		return Number{}, fmt.Errorf("%w: %s", ErrVersionOverflow, n)
	}
	*bumped++
	return out, nil
}

// String renders the triple, preserving the original component widths.
func (n Number) String() string {
	return fmt.Sprintf("%s.%s.%s", pad(n.Major, n.widths[0]), pad(n.Minor, n.widths[1]), pad(n.Patch, n.widths[2]))
}

func pad(v, width int) string {
	if width <= 1 {
		return strconv.Itoa(v)
	}
	return fmt.Sprintf("%0*d", width, v)
}

// NextVersion derives the next version string from current. An empty current version
// starts the history at 0.0.0.
func NextVersion(current string, t Type) (string, error) {
	if strings.TrimSpace(current) == "" {
		current = "0.0.0"
	}
	n, err := ParseNumber(current)
	if err != nil {
		return "", err
	}
	next, err := n.Next(t)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}

// SuggestNext derives the next version from the active record of list.
func SuggestNext(list []Record, t Type) string {
	current := ""
	if active, ok := Active(list); ok {
		current = active.Version
	}
	next, err := NextVersion(current, t)
	if err != nil {
		return ""
	}
	return next
}
