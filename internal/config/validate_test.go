package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmptyConfig(t *testing.T) {
	cfg := &FileConfig{}
	require.NoError(t, cfg.Validate())
}

func TestValidateFullConfig(t *testing.T) {
	cfg := &FileConfig{
		NoColor:          ptr(true),
		NodeURL:          ptr("wss://node.example:443"),
		NetworkID:        ptr(uint16(42)),
		KeyDir:           ptr("~/.commune/key"),
		KeyName:          ptr("sudo"),
		TimeoutSeconds:   ptr(300),
		EraPeriod:        ptr(uint64(32)),
		MinBalanceTokens: ptr(int64(15)),
	}
	require.NoError(t, cfg.Validate())
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  FileConfig
		want string
	}{
		{"http node url", FileConfig{NodeURL: ptr("https://node.example")}, "node_url"},
		{"bare host", FileConfig{NodeURL: ptr("node.example:9944")}, "node_url"},
		{"zero timeout", FileConfig{TimeoutSeconds: ptr(0)}, "timeout_seconds"},
		{"negative timeout", FileConfig{TimeoutSeconds: ptr(-1)}, "timeout_seconds"},
		{"zero era", FileConfig{EraPeriod: ptr(uint64(0))}, "era_period"},
		{"negative balance", FileConfig{MinBalanceTokens: ptr(int64(-1))}, "min_balance_tokens"},
		{"blank key dir", FileConfig{KeyDir: ptr("  ")}, "key_dir"},
		{"blank key name", FileConfig{KeyName: ptr("")}, "key_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
