package upgrade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/chainup/pkg/chain"
)

var testKey = chain.SigningKey{
	Address:   "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
	PublicKey: []byte{0xd4, 0x35},
	URI:       "//Alice",
}

func TestBuildSignedExtrinsicAnchorsCurrentState(t *testing.T) {
	client := newFakeClient()
	call, err := ComposeUpgradeCall(client, []byte{0x00, 0x61, 0x73, 0x6d})
	require.NoError(t, err)

	var sleeps []time.Duration
	ext, err := BuildSignedExtrinsic(context.Background(), &BuildOptions{
		Client:    client,
		Key:       testKey,
		Call:      call,
		EraPeriod: 16,
		Logger:    quietLogger(),
		Sleep:     recordSleeps(&sleeps),
	})
	require.NoError(t, err)

	assert.Equal(t, testKey.Address, ext.Signer)
	assert.Equal(t, uint32(7), ext.Nonce)
	assert.Equal(t, uint64(16), ext.Era.Period)
	assert.Equal(t, uint64(1000), ext.Era.Anchor.Number)
	assert.Equal(t, uint64(0), ext.Tip)
	assert.Empty(t, sleeps)
	assert.Equal(t, 1, client.signCalls)
}

func TestBuildSignedExtrinsicDefaultsEraPeriod(t *testing.T) {
	client := newFakeClient()

	ext, err := BuildSignedExtrinsic(context.Background(), &BuildOptions{
		Client: client,
		Key:    testKey,
		Call:   &fakeCall{module: "Sudo", method: "sudo_unchecked_weight"},
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultEraPeriod, ext.Era.Period)
}

func TestBuildSignedExtrinsicRetriesFromFreshState(t *testing.T) {
	client := newFakeClient()
	client.signErrs = []error{errors.New("signing payload rejected")}

	var sleeps []time.Duration
	var attempts []int
	ext, err := BuildSignedExtrinsic(context.Background(), &BuildOptions{
		Client:    client,
		Key:       testKey,
		Call:      &fakeCall{module: "Sudo", method: "sudo_unchecked_weight"},
		EraPeriod: 32,
		Logger:    quietLogger(),
		OnAttempt: func(attempt int) { attempts = append(attempts, attempt) },
		Sleep:     recordSleeps(&sleeps),
	})
	require.NoError(t, err)

	// The second attempt must not reuse what the first one read.
	assert.Equal(t, uint32(8), ext.Nonce)
	assert.Equal(t, uint64(1001), ext.Era.Anchor.Number)
	assert.Equal(t, 2, client.queryCalls)
	assert.Equal(t, 2, client.headCalls)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeps)
}

func TestBuildSignedExtrinsicExhaustsAttempts(t *testing.T) {
	boom := errors.New("rpc connection reset")
	client := newFakeClient()
	client.queryErrs = []error{boom, boom, boom}

	var sleeps []time.Duration
	_, err := BuildSignedExtrinsic(context.Background(), &BuildOptions{
		Client:    client,
		Key:       testKey,
		Call:      &fakeCall{module: "Sudo", method: "sudo_unchecked_weight"},
		EraPeriod: 32,
		Logger:    quietLogger(),
		Sleep:     recordSleeps(&sleeps),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstructionFailed)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)
	assert.Equal(t, 0, client.signCalls)
}

func TestBuildSignedExtrinsicStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := newFakeClient()
	client.queryErrs = []error{errors.New("rpc connection reset")}

	calls := 0
	_, err := BuildSignedExtrinsic(ctx, &BuildOptions{
		Client: client,
		Key:    testKey,
		Call:   &fakeCall{module: "Sudo", method: "sudo_unchecked_weight"},
		Logger: quietLogger(),
		OnAttempt: func(int) {
			calls++
			cancel()
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
