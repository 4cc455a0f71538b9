package depend

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a comparable version with major.minor.build.revision fields.
// Each field fits in 16 bits so a full version packs into a uint64 for
// storage and ordering.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

// ParseVersion parses up to four dotted numeric fields, optionally prefixed
// with "v" or "V". Missing fields default to zero.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimLeft(s, "vV")

	var fields [4]uint16
	for i, part := range strings.Split(s, ".") {
		if i >= len(fields) {
			return Version{}, ErrVersionFormat
		}
		field, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Version{}, ErrVersionFormat
		}
		fields[i] = uint16(field)
	}

	return Version{
		Major:    fields[0],
		Minor:    fields[1],
		Build:    fields[2],
		Revision: fields[3],
	}, nil
}

// VersionFromPacked unpacks a version previously packed with Pack.
func VersionFromPacked(packed uint64) Version {
	return Version{
		Major:    uint16(packed >> 48),
		Minor:    uint16(packed >> 32),
		Build:    uint16(packed >> 16),
		Revision: uint16(packed),
	}
}

// Pack encodes the version into a uint64 that sorts the same way
// Compare orders versions.
func (v Version) Pack() uint64 {
	return uint64(v.Major)<<48 | uint64(v.Minor)<<32 | uint64(v.Build)<<16 | uint64(v.Revision)
}

// Compare returns -1, 0 or 1 when v is less than, equal to or greater
// than other.
func (v Version) Compare(other Version) int {
	lhs, rhs := v.Pack(), other.Pack()
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}
