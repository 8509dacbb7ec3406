// Package substrate implements the chain.Client contract over a Substrate
// node's websocket JSON-RPC interface using go-substrate-rpc-client.
//
// Metadata and the genesis hash are pinned once per session; account state
// and runtime versions are fetched fresh on every call so signing never
// works from cached chain state.
package substrate

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	subkey "github.com/vedhavyas/go-subkey/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/altuslabsxyz/chainup/pkg/chain"
)

const (
	// DefaultNetworkID is the generic Substrate SS58 address format.
	DefaultNetworkID uint16 = 42

	// DefaultDialTimeout bounds connection setup when the endpoint does not
	// specify one.
	DefaultDialTimeout = 30 * time.Second
)

// Client talks to a single node over one websocket connection. The
// transport reconnects on its own; Client never retries application calls.
type Client struct {
	sapi    *gsrpc.SubstrateAPI
	network uint16
	meta    *types.Metadata
	genesis types.Hash
	logger  log.Logger

	closeOnce sync.Once
}

var _ chain.Client = (*Client)(nil)

// Dial opens a client for ep without RPC activity logging.
func Dial(ctx context.Context, ep chain.Endpoint) (chain.Client, error) {
	return NewDialer(log.NewNopLogger())(ctx, ep)
}

// NewDialer returns a chain.Dialer that logs RPC activity to logger.
func NewDialer(logger log.Logger) chain.Dialer {
	return func(ctx context.Context, ep chain.Endpoint) (chain.Client, error) {
		timeout := ep.DialTimeout
		if timeout <= 0 {
			timeout = DefaultDialTimeout
		}

		results := make(chan dialOutcome, 1)
		go func() {
			results <- connect(ep, logger)
		}()

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case out := <-results:
			return out.client, out.err
		case <-ctx.Done():
			go discardLate(results)
			return nil, fmt.Errorf("%w: dial %s: %v", chain.ErrConnection, ep.URL, ctx.Err())
		case <-timer.C:
			go discardLate(results)
			return nil, fmt.Errorf("%w: no session with %s within %s", chain.ErrConnection, ep.URL, timeout)
		}
	}
}

type dialOutcome struct {
	client *Client
	err    error
}

// discardLate closes a connection that completed after the caller gave up.
func discardLate(results <-chan dialOutcome) {
	if out := <-results; out.client != nil {
		out.client.Close()
	}
}

func connect(ep chain.Endpoint, logger log.Logger) dialOutcome {
	sapi, err := gsrpc.NewSubstrateAPI(ep.URL)
	if err != nil {
		return dialOutcome{err: fmt.Errorf("%w: dial %s: %v", chain.ErrConnection, ep.URL, err)}
	}

	c := &Client{sapi: sapi, network: ep.NetworkID, logger: logger}
	if c.network == 0 {
		c.network = DefaultNetworkID
	}

	// A session is only usable once metadata and the genesis hash are in
	// hand, so a failure here is still a connection failure.
	c.meta, err = sapi.RPC.State.GetMetadataLatest()
	if err != nil {
		c.Close()
		return dialOutcome{err: fmt.Errorf("%w: fetch metadata: %v", chain.ErrConnection, err)}
	}
	c.genesis, err = sapi.RPC.Chain.GetBlockHash(0)
	if err != nil {
		c.Close()
		return dialOutcome{err: fmt.Errorf("%w: fetch genesis hash: %v", chain.ErrConnection, err)}
	}

	logger.Debug("node session established", "url", ep.URL, "network", c.network, "genesis", c.genesis.Hex())
	return dialOutcome{client: c}
}

// QueryAccount implements chain.Client.
func (c *Client) QueryAccount(ctx context.Context, address string) (chain.AccountState, error) {
	if err := ctx.Err(); err != nil {
		return chain.AccountState{}, err
	}

	_, pub, err := subkey.SS58Decode(address)
	if err != nil {
		return chain.AccountState{}, fmt.Errorf("%w: decode address %q: %v", chain.ErrQuery, address, err)
	}

	key, err := types.CreateStorageKey(c.meta, "System", "Account", pub)
	if err != nil {
		return chain.AccountState{}, fmt.Errorf("%w: account storage key: %v", chain.ErrQuery, err)
	}

	var info types.AccountInfo
	ok, err := c.sapi.RPC.State.GetStorageLatest(key, &info)
	if err != nil {
		return chain.AccountState{}, fmt.Errorf("%w: read account: %v", chain.ErrQuery, err)
	}
	if !ok {
		return chain.AccountState{}, fmt.Errorf("%w: %s", chain.ErrAccountNotFound, address)
	}

	state := chain.AccountState{
		Address: address,
		Nonce:   uint32(info.Nonce),
		Free:    freeBalance(info),
	}
	c.logger.Debug("account queried", "address", address, "nonce", state.Nonce, "free", state.Free.String())
	return state, nil
}

// CurrentBlock implements chain.Client.
func (c *Client) CurrentBlock(ctx context.Context) (chain.BlockRef, error) {
	if err := ctx.Err(); err != nil {
		return chain.BlockRef{}, err
	}

	header, err := c.sapi.RPC.Chain.GetHeaderLatest()
	if err != nil {
		return chain.BlockRef{}, fmt.Errorf("%w: latest header: %v", chain.ErrQuery, err)
	}
	hash, err := c.sapi.RPC.Chain.GetBlockHash(uint64(header.Number))
	if err != nil {
		return chain.BlockRef{}, fmt.Errorf("%w: hash of block #%d: %v", chain.ErrQuery, header.Number, err)
	}
	return chain.BlockRef{Number: uint64(header.Number), Hash: hash.Hex()}, nil
}

// ComposeCall implements chain.Client. Call arguments produced by this
// client nest as-is; chain.Weight converts to the runtime's WeightsV2 form.
func (c *Client) ComposeCall(module, method string, args ...any) (chain.Call, error) {
	converted := make([]any, len(args))
	for i, arg := range args {
		v, err := convertArg(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s argument %d: %v", chain.ErrCompose, module, method, i, err)
		}
		converted[i] = v
	}

	call, err := types.NewCall(c.meta, module+"."+method, converted...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", chain.ErrCompose, module, method, err)
	}
	return runtimeCall{module: module, method: method, call: call}, nil
}

// CreateSignedExtrinsic implements chain.Client. Spec and transaction
// versions are read from the node at signing time; nonce and era come from
// opts and are expected to derive from state queried just before the call.
func (c *Client) CreateSignedExtrinsic(ctx context.Context, key chain.SigningKey, call chain.Call, opts chain.TxOptions) (*chain.SignedExtrinsic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, ok := call.(runtimeCall)
	if !ok {
		return nil, fmt.Errorf("%w: call was not composed by this client", chain.ErrSign)
	}

	pair, err := signature.KeyringPairFromSecret(key.URI, c.network)
	if err != nil {
		return nil, fmt.Errorf("%w: derive keypair: %v", chain.ErrSign, err)
	}

	rv, err := c.sapi.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return nil, fmt.Errorf("%w: runtime version: %v", chain.ErrQuery, err)
	}

	anchor, err := types.NewHashFromHexString(opts.Era.Anchor.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: era anchor hash: %v", chain.ErrSign, err)
	}

	ext := types.NewExtrinsic(rc.call)
	err = ext.Sign(pair, types.SignatureOptions{
		BlockHash:          anchor,
		Era:                mortalEra(opts.Era.Period, opts.Era.Anchor.Number),
		GenesisHash:        c.genesis,
		Nonce:              types.NewUCompactFromUInt(uint64(opts.Nonce)),
		SpecVersion:        rv.SpecVersion,
		Tip:                types.NewUCompactFromUInt(opts.Tip),
		TransactionVersion: rv.TransactionVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrSign, err)
	}

	encoded, err := codec.Encode(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: encode signed extrinsic: %v", chain.ErrSign, err)
	}

	signed := &chain.SignedExtrinsic{
		Signer:  key.Address,
		Nonce:   opts.Nonce,
		Era:     opts.Era,
		Tip:     opts.Tip,
		Hash:    hashHex(encoded),
		Payload: ext,
	}
	c.logger.Debug("extrinsic signed",
		"call", call.Module()+"."+call.Method(),
		"nonce", opts.Nonce,
		"era_period", opts.Era.Period,
		"era_anchor", opts.Era.Anchor.Number,
		"spec_version", uint32(rv.SpecVersion),
		"hash", signed.Hash,
	)
	return signed, nil
}

// SubmitAndWatch implements chain.Client. It returns once the extrinsic is
// in a block (success or runtime failure, see Inclusion), or with an error
// classified for the caller's retry policy.
func (c *Client) SubmitAndWatch(ctx context.Context, signed *chain.SignedExtrinsic) (*chain.Inclusion, error) {
	ext, ok := signed.Payload.(types.Extrinsic)
	if !ok {
		return nil, fmt.Errorf("%w: extrinsic was not signed by this client", chain.ErrSubmit)
	}

	sub, err := c.sapi.RPC.Author.SubmitAndWatchExtrinsic(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chain.ErrSubmit, err)
	}
	defer sub.Unsubscribe()

	c.logger.Debug("extrinsic submitted", "hash", signed.Hash, "nonce", signed.Nonce)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-sub.Err():
			return nil, fmt.Errorf("%w: watch: %v", chain.ErrSubmit, err)
		case status := <-sub.Chan():
			switch {
			case status.IsInBlock:
				c.logger.Debug("extrinsic in block", "block", status.AsInBlock.Hex())
				return c.resolveInclusion(signed, status.AsInBlock), nil
			case status.IsInvalid:
				return nil, fmt.Errorf("%w: node reported the transaction invalid", chain.ErrStale)
			case status.IsUsurped:
				return nil, fmt.Errorf("%w: nonce usurped by %s", chain.ErrStale, status.AsUsurped.Hex())
			case status.IsDropped:
				return nil, fmt.Errorf("%w: dropped from the transaction pool", chain.ErrSubmit)
			default:
				c.logger.Debug("extrinsic status", "status", statusLabel(status))
			}
		}
	}
}

// Close implements chain.Client.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if closer, ok := c.sapi.Client.(interface{ Close() }); ok {
			closer.Close()
		}
	})
}

// runtimeCall pairs the encoded call with its names for display.
type runtimeCall struct {
	module string
	method string
	call   types.Call
}

func (r runtimeCall) Module() string { return r.module }
func (r runtimeCall) Method() string { return r.method }

func convertArg(arg any) (any, error) {
	switch v := arg.(type) {
	case runtimeCall:
		return v.call, nil
	case chain.Weight:
		return types.Weight{
			RefTime:   types.NewUCompactFromUInt(v.RefTime),
			ProofSize: types.NewUCompactFromUInt(v.ProofSize),
		}, nil
	case chain.Call:
		return nil, fmt.Errorf("nested call was not composed by this client")
	default:
		return arg, nil
	}
}

func freeBalance(info types.AccountInfo) sdkmath.Int {
	if info.Data.Free.Int == nil {
		return sdkmath.ZeroInt()
	}
	return sdkmath.NewIntFromBigInt(info.Data.Free.Int)
}

func hashHex(encoded []byte) string {
	sum := blake2b.Sum256(encoded)
	return "0x" + hex.EncodeToString(sum[:])
}

func statusLabel(s types.ExtrinsicStatus) string {
	switch {
	case s.IsFuture:
		return "future"
	case s.IsReady:
		return "ready"
	case s.IsBroadcast:
		return "broadcast"
	case s.IsRetracted:
		return "retracted"
	case s.IsFinalityTimeout:
		return "finality timeout"
	case s.IsFinalized:
		return "finalized"
	default:
		return "pending"
	}
}
