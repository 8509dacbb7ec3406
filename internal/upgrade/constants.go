package upgrade

import "time"

const (
	// DefaultNodeURL is the websocket RPC endpoint used when none is given.
	DefaultNodeURL = "wss://testnet.api.communeai.net"

	// DefaultNetworkID is the SS58 address format of the target chain.
	DefaultNetworkID uint16 = 42

	// DefaultTimeoutSeconds bounds a single submission attempt end to end,
	// from broadcast to inclusion.
	DefaultTimeoutSeconds = 300

	// DefaultEraPeriod is the mortality window, in blocks, of a signed
	// upgrade extrinsic. A transaction not included within the window dies
	// and has to be rebuilt from fresh chain state.
	DefaultEraPeriod uint64 = 32

	// DefaultKeyDir is where signer key files are looked up.
	DefaultKeyDir = "~/.commune/key"

	// MinBalanceTokens is the free balance, in whole tokens, the sudo
	// account must hold before a submission is attempted.
	MinBalanceTokens = 15

	// TokenDecimals is the base-unit precision of the chain's native token.
	TokenDecimals = 9

	// MaxConstructionAttempts bounds retries while building and signing
	// the upgrade extrinsic.
	MaxConstructionAttempts = 3

	// MaxSubmissionAttempts bounds retries while broadcasting and watching
	// a signed extrinsic.
	MaxSubmissionAttempts = 3

	// MaxRebuilds bounds how many times a stale extrinsic is rebuilt from
	// fresh chain state after the submission phase rejects it.
	MaxRebuilds = 1

	// BannedBackoff is the flat wait after the node reports the
	// transaction temporarily banned.
	BannedBackoff = 30 * time.Second

	// ConstructionBackoffUnit seeds the exponential backoff between
	// construction attempts.
	ConstructionBackoffUnit = time.Second

	// SubmissionBackoffUnit seeds the exponential backoff between
	// submission attempts.
	SubmissionBackoffUnit = time.Second

	// SudoWeightRefTime and SudoWeightProofSize override the weight of the
	// wrapped set_code call. Dispatching through Sudo.sudo_unchecked_weight
	// keeps a miscalibrated weight on set_code from making the call
	// unpayable.
	SudoWeightRefTime   uint64 = 1_000_000_000
	SudoWeightProofSize uint64 = 1024
)
