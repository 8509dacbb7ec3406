package upgrade

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// RequiredBalance converts a whole-token amount to base units.
func RequiredBalance(tokens int64) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(tokens, TokenDecimals)
}

// FormatTokens renders a base-unit balance as whole tokens with two decimals.
func FormatTokens(base sdkmath.Int) string {
	unit := sdkmath.NewIntWithDecimal(1, TokenDecimals)
	whole := base.Quo(unit)
	frac := base.Mod(unit).MulRaw(100).Quo(unit)
	return fmt.Sprintf("%s.%02d", whole, frac.Int64())
}
