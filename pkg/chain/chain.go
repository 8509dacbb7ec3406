// Package chain defines the node-facing contract used by the upgrade
// workflow: a Client for querying state, composing runtime calls, signing
// extrinsics, and watching submissions, plus the value types that cross
// that boundary.
//
// The contract is deliberately library-neutral. The live websocket
// implementation lives in the substrate subpackage; tests substitute
// in-memory fakes.
package chain

import (
	"context"
)

// Client is a connection to a single node, used strictly sequentially by
// one signer workflow.
type Client interface {
	// QueryAccount returns the on-chain state of the given SS58 address at
	// the moment of the call. Results are never cached; callers re-query
	// before every signing attempt. A missing account is an error.
	QueryAccount(ctx context.Context, address string) (AccountState, error)

	// CurrentBlock returns the number and hash of the node's best block.
	CurrentBlock(ctx context.Context) (BlockRef, error)

	// ComposeCall builds a runtime call from module/method names and
	// SCALE-encodable arguments. A Call produced by this client may be
	// passed back as an argument to nest calls.
	ComposeCall(module, method string, args ...any) (Call, error)

	// CreateSignedExtrinsic signs call for key. Nonce, era window, and tip
	// come from opts; spec and transaction versions are fetched fresh from
	// the node, and the genesis hash is the one pinned at dial time.
	CreateSignedExtrinsic(ctx context.Context, key SigningKey, call Call, opts TxOptions) (*SignedExtrinsic, error)

	// SubmitAndWatch submits ext and blocks until it reaches a block, the
	// node rejects it, or ctx is done. Inclusion in a block does not imply
	// the call succeeded; see Inclusion.Success.
	SubmitAndWatch(ctx context.Context, ext *SignedExtrinsic) (*Inclusion, error)

	// Close releases the underlying connection. Safe to call more than once.
	Close()
}

// Call is an opaque runtime call handle. Implementations carry their own
// encoded form; the interface only exposes what callers need for display.
type Call interface {
	Module() string
	Method() string
}

// Dialer opens a Client for an endpoint. The orchestrator depends on this
// instead of a concrete constructor so tests can hand it a fake.
type Dialer func(ctx context.Context, ep Endpoint) (Client, error)
