package chain

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Endpoint describes how to reach a node. Websocket keepalive and
// transport-level reconnection are handled inside the client; DialTimeout
// only bounds the initial connection.
type Endpoint struct {
	URL         string
	NetworkID   uint16 // SS58 address format of the target chain
	DialTimeout time.Duration
}

// SigningKey is the signer material handed to CreateSignedExtrinsic.
// URI is the secret in subkey form (mnemonic phrase or 0x-prefixed seed)
// and must never be logged.
type SigningKey struct {
	Address   string
	PublicKey []byte
	URI       string
}

// AccountState is a point-in-time snapshot of an account. Free is kept as
// a big integer in base units; token display conversion is a caller concern.
type AccountState struct {
	Address string
	Nonce   uint32
	Free    sdkmath.Int
}

// BlockRef identifies a block by number and hash. Used as the anchor for
// mortal era windows.
type BlockRef struct {
	Number uint64
	Hash   string
}

// EraWindow is the validity window of a mortal extrinsic: Period blocks,
// anchored at the block the signature checkpoints against.
type EraWindow struct {
	Period uint64
	Anchor BlockRef
}

// Weight is a dispatch weight declaration (WeightsV2 shape).
type Weight struct {
	RefTime   uint64
	ProofSize uint64
}

// TxOptions carries the per-attempt signing inputs. Each construction
// attempt builds a fresh TxOptions from freshly queried state.
type TxOptions struct {
	Nonce uint32
	Era   EraWindow
	Tip   uint64
}

// SignedExtrinsic is a signed transaction ready for submission. Payload
// holds the client-specific encoded form; the exported fields describe it
// for logs and reports. Instances are single-use: after a staleness
// failure a new one is built from re-queried state.
type SignedExtrinsic struct {
	Signer  string
	Nonce   uint32
	Era     EraWindow
	Tip     uint64
	Hash    string // 0x-prefixed blake2b-256 of the encoded extrinsic
	Payload any
}

// Inclusion is the terminal result of a watched submission. Success is
// false only when the runtime positively reported failure for this
// extrinsic; FailureReason then carries the rendered dispatch error.
type Inclusion struct {
	BlockHash     string
	Index         int // extrinsic index within the block, -1 if not resolved
	Success       bool
	FailureReason string
	Events        []string
}
