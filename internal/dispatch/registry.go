package dispatch

// Register base offsets, shared across generations; only the strides
// differ by generation, matching how real QAT silicon keeps the same CSR
// block shape across generations but widens the bundle/ring spacing as
// ring counts grow.
const (
	baseRingHead     = 0x0000
	baseRingTail     = 0x0100
	baseRingConfig   = 0x0200
	baseRingBaseLow  = 0x0300
	baseRingBaseHigh = 0x0380
	baseArbEnable    = 0x0400
)

func makeLayout(bundleStride, ringStride uint32) BundleLayout {
	return BundleLayout{
		RingHeadOffset: func(bundle, ring uint32) uint32 {
			return baseRingHead + bundle*bundleStride + ring*ringStride
		},
		RingTailOffset: func(bundle, ring uint32) uint32 {
			return baseRingTail + bundle*bundleStride + ring*ringStride
		},
		RingConfigOffset: func(bundle, ring uint32) uint32 {
			return baseRingConfig + bundle*bundleStride + ring*ringStride
		},
		RingBaseLowOffset: func(bundle, ring uint32) uint32 {
			return baseRingBaseLow + bundle*bundleStride + ring*ringStride
		},
		RingBaseHighOffset: func(bundle, ring uint32) uint32 {
			return baseRingBaseHigh + bundle*bundleStride + ring*ringStride
		},
		ArbiterEnableOffset: func(bundle uint32) uint32 {
			return baseArbEnable + bundle*bundleStride
		},
	}
}

// Registry is the immutable generation → HWSpec table, built once below.
// Nothing after init() writes to it; callers only ever read a row by
// Generation.
var Registry [MaxGeneration]HWSpec

func init() {
	Registry[Gen1] = HWSpec{
		Generation:       Gen1,
		RingsPerBundle:   8,
		BundleStride:     0x1000,
		LegacyAlgorithms: true,
		Layout:           makeLayout(0x1000, 0x40),
	}
	Registry[Gen2] = HWSpec{
		Generation:       Gen2,
		RingsPerBundle:   8,
		BundleStride:     0x1000,
		LegacyAlgorithms: true,
		Layout:           makeLayout(0x1000, 0x40),
	}
	Registry[Gen3] = HWSpec{
		Generation:     Gen3,
		RingsPerBundle: 16,
		BundleStride:   0x2000,
		Layout:         makeLayout(0x2000, 0x80),
	}
	Registry[Gen4] = HWSpec{
		Generation:     Gen4,
		RingsPerBundle: 16,
		BundleStride:   0x2000,
		Layout:         makeLayout(0x2000, 0x80),
	}
	Registry[Gen5] = HWSpec{
		Generation:             Gen5,
		RingsPerBundle:         32,
		BundleStride:           0x4000,
		SupportsCompressionCNV: true,
		Layout:                 makeLayout(0x4000, 0x100),
	}
	Registry[GenLCE] = HWSpec{
		Generation:             GenLCE,
		RingsPerBundle:         2,
		BundleStride:           0x4000,
		SupportsLCEAEAD:        true,
		SupportsCompressionCNV: true,
		Layout:                 makeLayout(0x4000, 0x100),
	}
	Registry[GenVQAT] = HWSpec{
		Generation:     GenVQAT,
		RingsPerBundle: 4,
		BundleStride:   0x1000,
		Layout:         makeLayout(0x1000, 0x40),
	}
}

// Lookup returns the HWSpec row for g, or false if g is out of range.
func Lookup(g Generation) (HWSpec, bool) {
	if !g.Valid() {
		return HWSpec{}, false
	}
	return Registry[g], true
}
