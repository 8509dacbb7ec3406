package upgrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/chainup/pkg/chain"
)

func TestComposeUpgradeCall(t *testing.T) {
	client := newFakeClient()
	code := []byte{0x00, 0x61, 0x73, 0x6d}

	call, err := ComposeUpgradeCall(client, code)
	require.NoError(t, err)

	// Exactly one sudo layer around set_code, with the weight override.
	outer, ok := call.(*fakeCall)
	require.True(t, ok)
	assert.Equal(t, "Sudo", outer.Module())
	assert.Equal(t, "sudo_unchecked_weight", outer.Method())
	require.Len(t, outer.args, 2)

	inner, ok := outer.args[0].(*fakeCall)
	require.True(t, ok)
	assert.Equal(t, "System", inner.Module())
	assert.Equal(t, "set_code", inner.Method())
	require.Len(t, inner.args, 1)
	assert.Equal(t, code, inner.args[0])

	weight, ok := outer.args[1].(chain.Weight)
	require.True(t, ok)
	assert.Equal(t, uint64(SudoWeightRefTime), weight.RefTime)
	assert.Equal(t, uint64(SudoWeightProofSize), weight.ProofSize)
}
