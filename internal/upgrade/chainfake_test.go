package upgrade

import (
	"context"
	"fmt"
	"io"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/altuslabsxyz/chainup/internal/keystore"
	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/pkg/chain"
)

func quietLogger() *output.Logger {
	return output.NewLoggerWithWriters(io.Discard, io.Discard)
}

// fakeCall is the Call produced by fakeClient.ComposeCall. It keeps the raw
// arguments so tests can assert on the composed call tree.
type fakeCall struct {
	module string
	method string
	args   []any
}

func (c *fakeCall) Module() string { return c.module }
func (c *fakeCall) Method() string { return c.method }

// submitResult scripts one SubmitAndWatch call. block means "hang until the
// caller's context gives up", which is how a node that never reports
// inclusion looks from this side.
type submitResult struct {
	inclusion *chain.Inclusion
	err       error
	block     bool
}

// fakeClient is a scripted chain.Client. Error slices are indexed by call
// number; past their end, calls succeed. The served nonce and head advance
// on every read so consecutive construction attempts observe moving chain
// state, the way they would against a live node.
type fakeClient struct {
	nonce uint32
	head  uint64
	free  sdkmath.Int

	queryErrs []error
	headErrs  []error
	signErrs  []error
	submits   []submitResult

	queryCalls  int
	headCalls   int
	signCalls   int
	submitCalls int
	closed      bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nonce: 7,
		head:  1000,
		free:  sdkmath.NewIntWithDecimal(100, TokenDecimals),
	}
}

func (c *fakeClient) QueryAccount(ctx context.Context, address string) (chain.AccountState, error) {
	idx := c.queryCalls
	c.queryCalls++
	if idx < len(c.queryErrs) && c.queryErrs[idx] != nil {
		return chain.AccountState{}, c.queryErrs[idx]
	}
	nonce := c.nonce
	c.nonce++
	return chain.AccountState{Address: address, Nonce: nonce, Free: c.free}, nil
}

func (c *fakeClient) CurrentBlock(ctx context.Context) (chain.BlockRef, error) {
	idx := c.headCalls
	c.headCalls++
	if idx < len(c.headErrs) && c.headErrs[idx] != nil {
		return chain.BlockRef{}, c.headErrs[idx]
	}
	head := c.head
	c.head++
	return chain.BlockRef{Number: head, Hash: fmt.Sprintf("0xhead%d", head)}, nil
}

func (c *fakeClient) ComposeCall(module, method string, args ...any) (chain.Call, error) {
	return &fakeCall{module: module, method: method, args: args}, nil
}

func (c *fakeClient) CreateSignedExtrinsic(ctx context.Context, key chain.SigningKey, call chain.Call, opts chain.TxOptions) (*chain.SignedExtrinsic, error) {
	idx := c.signCalls
	c.signCalls++
	if idx < len(c.signErrs) && c.signErrs[idx] != nil {
		return nil, c.signErrs[idx]
	}
	return &chain.SignedExtrinsic{
		Signer:  key.Address,
		Nonce:   opts.Nonce,
		Era:     opts.Era,
		Tip:     opts.Tip,
		Hash:    fmt.Sprintf("0xtx%d", idx),
		Payload: call,
	}, nil
}

func (c *fakeClient) SubmitAndWatch(ctx context.Context, ext *chain.SignedExtrinsic) (*chain.Inclusion, error) {
	idx := c.submitCalls
	c.submitCalls++
	if idx < len(c.submits) {
		r := c.submits[idx]
		if r.block {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		if r.err != nil {
			return nil, r.err
		}
		if r.inclusion != nil {
			return r.inclusion, nil
		}
	}
	return &chain.Inclusion{
		BlockHash: "0xincluded",
		Index:     2,
		Success:   true,
		Events:    []string{"Sudo.Sudid", "System.CodeUpdated", "System.ExtrinsicSuccess"},
	}, nil
}

func (c *fakeClient) Close() { c.closed = true }

// fakeDialer hands out a prepared client and records the endpoint it was
// asked to reach.
type fakeDialer struct {
	client   *fakeClient
	err      error
	endpoint chain.Endpoint
	dials    int
}

func (d *fakeDialer) Dial(ctx context.Context, ep chain.Endpoint) (chain.Client, error) {
	d.dials++
	d.endpoint = ep
	if d.err != nil {
		return nil, d.err
	}
	return d.client, nil
}

// fakeKeys serves credentials from a map, or a fixed error.
type fakeKeys struct {
	creds map[string]*keystore.Credential
	err   error
}

func (k *fakeKeys) Load(name string) (*keystore.Credential, error) {
	if k.err != nil {
		return nil, k.err
	}
	cred, ok := k.creds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", keystore.ErrKeyNotFound, name)
	}
	return cred, nil
}

// recordSleeps returns a SleepFunc that notes requested waits without
// actually waiting.
func recordSleeps(sleeps *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
}
