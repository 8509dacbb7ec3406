package chain

import (
	"errors"
	"strings"
)

// Sentinel errors returned (wrapped) by Client implementations. Callers
// match with errors.Is; the node's own message is preserved in the chain.
var (
	// ErrConnection covers dial failures and dropped connections.
	ErrConnection = errors.New("node connection failed")

	// ErrQuery covers failed or undecodable state queries.
	ErrQuery = errors.New("chain state query failed")

	// ErrAccountNotFound is returned when the queried account has no
	// on-chain record.
	ErrAccountNotFound = errors.New("account not found on chain")

	// ErrCompose covers call composition failures (unknown module or
	// method, unencodable argument).
	ErrCompose = errors.New("call composition failed")

	// ErrSign covers signing failures.
	ErrSign = errors.New("extrinsic signing failed")

	// ErrSubmit covers submission failures with no more specific class.
	ErrSubmit = errors.New("extrinsic submission failed")

	// ErrStale marks an extrinsic the node considers outdated or invalid
	// for the current chain state. Resubmitting the same bytes is useless;
	// it must be rebuilt from fresh state.
	ErrStale = errors.New("extrinsic stale for current chain state")

	// ErrBanned marks an extrinsic the node has temporarily banned after
	// repeated submission. The same bytes become acceptable again once the
	// node's cooldown lapses.
	ErrBanned = errors.New("extrinsic temporarily banned")
)

// Class buckets a submission error by the retry treatment it deserves.
type Class int

const (
	// ClassTransient: retry the same extrinsic with growing backoff.
	ClassTransient Class = iota
	// ClassBanned: node cooldown, retry the same extrinsic after a flat wait.
	ClassBanned
	// ClassStale: chain state moved on, the extrinsic must be rebuilt.
	ClassStale
)

func (c Class) String() string {
	switch c {
	case ClassBanned:
		return "banned"
	case ClassStale:
		return "stale"
	default:
		return "transient"
	}
}

// Node error fragments as they appear in substrate RPC error messages.
// Matched case-insensitively because wording casing varies across node
// versions.
const (
	fragmentOutdated  = "transaction is outdated"
	fragmentInvalid   = "invalid transaction"
	fragmentBanned    = "temporarily banned"
	fragmentBannedAlt = "temporary bann"
)

// Classify maps a submission error to its retry class. Wrapped sentinels
// win over message sniffing; unknown errors default to transient so the
// caller's bounded retry budget decides their fate.
func Classify(err error) Class {
	if errors.Is(err, ErrBanned) {
		return ClassBanned
	}
	if errors.Is(err, ErrStale) {
		return ClassStale
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, fragmentBanned), strings.Contains(msg, fragmentBannedAlt):
		return ClassBanned
	case strings.Contains(msg, fragmentOutdated), strings.Contains(msg, fragmentInvalid):
		return ClassStale
	default:
		return ClassTransient
	}
}
