package substrate

import (
	"math/bits"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// mortalEra encodes a validity window of period blocks anchored at block
// current into the runtime's two-byte era form. The runtime requires the
// period to be a power of two in [4, 65536]; out-of-range values are
// rounded up and clamped the same way the runtime's own constructor does,
// so the signed era always matches what validators recompute.
//
// Layout: the low four bits store log2(period)-1, the remaining twelve the
// quantized phase (current modulo period, divided by max(period>>12, 1)).
// A zero period yields an immortal era.
func mortalEra(period, current uint64) types.ExtrinsicEra {
	if period == 0 {
		return types.ExtrinsicEra{IsImmortalEra: true}
	}

	period = ceilPowerOfTwo(period)
	if period < 4 {
		period = 4
	}
	if period > 1<<16 {
		period = 1 << 16
	}

	phase := current % period
	quantizeFactor := period >> 12
	if quantizeFactor < 1 {
		quantizeFactor = 1
	}
	quantizedPhase := phase / quantizeFactor

	low := bits.TrailingZeros64(period) - 1
	if low < 1 {
		low = 1
	}
	if low > 15 {
		low = 15
	}

	encoded := uint16(low) | uint16(quantizedPhase)<<4
	return types.ExtrinsicEra{
		IsMortalEra: true,
		AsMortalEra: types.MortalEra{
			First:  byte(encoded),
			Second: byte(encoded >> 8),
		},
	}
}

func ceilPowerOfTwo(v uint64) uint64 {
	if v&(v-1) == 0 {
		return v
	}
	return 1 << bits.Len64(v)
}
