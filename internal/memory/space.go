// Package memory implements exclusive single-space buffers and the
// process-wide allocation tracker that accounts for them.
package memory

import "fmt"

// Space selects one or more memory spaces.
type Space uint8

// Memory spaces.
const (
	Host Space = 1 << iota
	Device

	HostDevice = Host | Device
)

// numSpaces is the number of distinct single spaces tracked.
const numSpaces = 2

// Has reports whether s includes every space in other.
func (s Space) Has(other Space) bool {
	return other != 0 && s&other == other
}

// Single reports whether s names exactly one space.
func (s Space) Single() bool {
	return s == Host || s == Device
}

// Spaces returns the single spaces contained in s, host first.
func (s Space) Spaces() []Space {
	var out []Space
	if s.Has(Host) {
		out = append(out, Host)
	}
	if s.Has(Device) {
		out = append(out, Device)
	}
	return out
}

func (s Space) index() int {
	if s == Device {
		return 1
	}
	return 0
}

// String returns a human-readable space name.
func (s Space) String() string {
	switch s {
	case 0:
		return "none"
	case Host:
		return "host"
	case Device:
		return "device"
	case HostDevice:
		return "host|device"
	default:
		return fmt.Sprintf("space(%d)", uint8(s))
	}
}

// HumanSize formats a byte count with binary units.
func HumanSize(n int64) string {
	val := float64(n)
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	i := 0
	for (val >= 1024 || val <= -1024) && i < len(units)-1 {
		val /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", val, units[i])
}
