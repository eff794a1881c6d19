package models

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "namemint/pkg/domain-errors"
)

// Version identifies a schema shape of the aggregate state. Ordering is
// lexicographic over (major, minor, patch).
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Compare returns -1, 0 or 1 as v orders before, equal to or after other.
// The relation is a strict total order.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return sign(v.Major - other.Major)
	}
	if v.Minor != other.Minor {
		return sign(v.Minor - other.Minor)
	}
	return sign(v.Patch - other.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses "major.minor.patch".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid version %q", s)
	}
	var numbers [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid version %q", s)
		}
		numbers[i] = n
	}
	return Version{Major: numbers[0], Minor: numbers[1], Patch: numbers[2]}, nil
}

// ValidateUpgrade permits to >= from. A strict downgrade is rejected here;
// moving backwards is only possible through the rollback path, which is
// recorded as such.
func ValidateUpgrade(from, to Version) error {
	if to.Compare(from) < 0 {
		return dErrors.Newf(dErrors.CodeValidation,
			"cannot migrate from %s down to %s, use rollback", from, to)
	}
	return nil
}
