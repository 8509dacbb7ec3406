package substrate

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"

	"github.com/altuslabsxyz/chainup/pkg/chain"
)

// resolveInclusion builds the terminal Inclusion for an extrinsic that
// reached blockHash. Event decoding against runtimes with foreign pallets
// is best-effort: only a positively matched failure event flips Success to
// false, so an included upgrade is never misreported as rejected just
// because the block's event stream would not decode.
func (c *Client) resolveInclusion(signed *chain.SignedExtrinsic, blockHash types.Hash) *chain.Inclusion {
	inc := &chain.Inclusion{BlockHash: blockHash.Hex(), Index: -1, Success: true}

	index, err := c.extrinsicIndex(signed, blockHash)
	if err != nil {
		c.logger.Warn("extrinsic index not resolved; assuming success", "block", inc.BlockHash, "err", err)
		return inc
	}
	inc.Index = index

	events, failure, err := c.extrinsicEvents(blockHash, index)
	if err != nil {
		c.logger.Warn("events not decoded for inclusion block; assuming success", "block", inc.BlockHash, "err", err)
		return inc
	}

	inc.Events = events
	if failure != "" {
		inc.Success = false
		inc.FailureReason = failure
	}
	return inc
}

// extrinsicIndex locates the submitted extrinsic inside the block by
// comparing blake2b-256 hashes of the encoded extrinsics.
func (c *Client) extrinsicIndex(signed *chain.SignedExtrinsic, blockHash types.Hash) (int, error) {
	block, err := c.sapi.RPC.Chain.GetBlock(blockHash)
	if err != nil {
		return -1, fmt.Errorf("fetch block: %w", err)
	}

	for i := range block.Block.Extrinsics {
		encoded, err := codec.Encode(block.Block.Extrinsics[i])
		if err != nil {
			continue
		}
		if hashHex(encoded) == signed.Hash {
			return i, nil
		}
	}
	return -1, fmt.Errorf("extrinsic %s not present in block", signed.Hash)
}

// extrinsicEvents reads System.Events at blockHash and extracts the events
// attributable to the extrinsic at index. The returned failure string is
// empty unless the runtime positively reported the dispatch as failed.
func (c *Client) extrinsicEvents(blockHash types.Hash, index int) ([]string, string, error) {
	key, err := types.CreateStorageKey(c.meta, "System", "Events")
	if err != nil {
		return nil, "", fmt.Errorf("events storage key: %w", err)
	}

	var raw types.EventRecordsRaw
	ok, err := c.sapi.RPC.State.GetStorage(key, &raw, blockHash)
	if err != nil {
		return nil, "", fmt.Errorf("read events: %w", err)
	}
	if !ok {
		return nil, "", fmt.Errorf("no event records at block")
	}

	records := types.EventRecords{}
	if err := raw.DecodeEventRecords(c.meta, &records); err != nil {
		return nil, "", fmt.Errorf("decode events: %w", err)
	}

	var names []string
	var failure string
	appliesTo := func(phase types.Phase) bool {
		return phase.IsApplyExtrinsic && int(phase.AsApplyExtrinsic) == index
	}

	for _, e := range records.System_ExtrinsicSuccess {
		if appliesTo(e.Phase) {
			names = append(names, "System.ExtrinsicSuccess")
		}
	}
	for _, e := range records.System_ExtrinsicFailed {
		if appliesTo(e.Phase) {
			names = append(names, "System.ExtrinsicFailed")
			failure = renderDispatchError(e.DispatchError)
		}
	}
	// The sudo wrapper dispatches fine even when the inner call does not;
	// Sudid carries the inner result.
	for _, e := range records.Sudo_Sudid {
		if appliesTo(e.Phase) {
			names = append(names, "Sudo.Sudid")
			if !e.Result.Ok {
				failure = "sudo inner call failed: " + renderDispatchError(e.Result.Error)
			}
		}
	}
	for _, e := range records.System_CodeUpdated {
		if appliesTo(e.Phase) {
			names = append(names, "System.CodeUpdated")
		}
	}
	return names, failure, nil
}

func renderDispatchError(d types.DispatchError) string {
	switch {
	case d.IsModule:
		return fmt.Sprintf("module error (pallet %d, code %v)", d.ModuleError.Index, d.ModuleError.Error)
	case d.IsBadOrigin:
		return "bad origin: the signer lacks the required privilege"
	case d.IsCannotLookup:
		return "cannot lookup"
	case d.IsToken:
		return "token error"
	case d.IsArithmetic:
		return "arithmetic error"
	case d.IsTransactional:
		return "transactional error"
	default:
		return "dispatch failed"
	}
}
