package upgrade

import (
	"fmt"

	"github.com/altuslabsxyz/chainup/pkg/chain"
)

// ComposeUpgradeCall builds the sudo-wrapped set_code call for a runtime blob.
// The wrap is a single Sudo.sudo_unchecked_weight with a fixed weight override
// so the oversized set_code dispatch is not rejected as unpayable.
func ComposeUpgradeCall(client chain.Client, code []byte) (chain.Call, error) {
	setCode, err := client.ComposeCall("System", "set_code", code)
	if err != nil {
		return nil, fmt.Errorf("compose set_code: %w", err)
	}

	weight := chain.Weight{RefTime: SudoWeightRefTime, ProofSize: SudoWeightProofSize}
	sudoCall, err := client.ComposeCall("Sudo", "sudo_unchecked_weight", setCode, weight)
	if err != nil {
		return nil, fmt.Errorf("compose sudo wrapper: %w", err)
	}

	return sudoCall, nil
}
