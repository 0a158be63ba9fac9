// Package dispatch holds the hardware-spec dispatch table: one HWSpec per
// device generation, built once at init and never mutated afterward. The
// ring, queue, and request-builder packages index into this table instead
// of branching on generation themselves.
package dispatch

// Generation identifies a hardware generation's CSR layout and capability
// set. Values are dense so they can index directly into the registry array.
type Generation int

const (
	Gen1 Generation = iota
	Gen2
	Gen3
	Gen4
	Gen5
	GenLCE
	GenVQAT

	MaxGeneration
)

func (g Generation) String() string {
	switch g {
	case Gen1:
		return "gen1"
	case Gen2:
		return "gen2"
	case Gen3:
		return "gen3"
	case Gen4:
		return "gen4"
	case Gen5:
		return "gen5"
	case GenLCE:
		return "lce"
	case GenVQAT:
		return "vqat"
	default:
		return "unknown"
	}
}

// Valid reports whether g indexes a real registry row.
func (g Generation) Valid() bool {
	return g >= Gen1 && g < MaxGeneration
}
