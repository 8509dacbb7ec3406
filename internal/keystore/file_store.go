package keystore

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"

	"github.com/altuslabsxyz/chainup/internal/output"
	"github.com/altuslabsxyz/chainup/internal/paths"
)

// FileStore reads key files from a directory, one JSON file per key.
type FileStore struct {
	dir     string
	network uint16
	logger  *output.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore over dir. A leading "~" in dir is expanded.
func NewFileStore(dir string, network uint16, logger *output.Logger) (*FileStore, error) {
	if logger == nil {
		logger = output.DefaultLogger
	}
	expanded, err := paths.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve key directory: %w", err)
	}
	return &FileStore{dir: expanded, network: network, logger: logger}, nil
}

// Dir returns the resolved key directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// keyRecord mirrors the inner JSON payload of a commune key file.
type keyRecord struct {
	CryptoType  *int   `json:"crypto_type"`
	SeedHex     string `json:"seed_hex"`
	Path        string `json:"path"`
	PublicKey   string `json:"public_key"`
	SS58Format  uint16 `json:"ss58_format"`
	SS58Address string `json:"ss58_address"`
	PrivateKey  string `json:"private_key"`
	Mnemonic    string `json:"mnemonic"`
}

const sr25519CryptoType = 1

// Load reads, parses, and verifies the named key.
//
// The secret URI is taken from the mnemonic when present, otherwise from the
// seed. Files carrying only an expanded private key are rejected; that form
// cannot be re-derived for signing. The keypair derived from the URI must
// match the identity recorded in the file.
func (s *FileStore) Load(name string) (*Credential, error) {
	path := paths.KeyFilePath(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s in %s", ErrKeyNotFound, name, s.dir)
		}
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}

	var envelope struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedKey, path, err)
	}
	if envelope.Data == "" {
		return nil, fmt.Errorf("%w: %s: missing data payload", ErrMalformedKey, path)
	}

	var rec keyRecord
	if err := json.Unmarshal([]byte(envelope.Data), &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedKey, path, err)
	}

	if rec.CryptoType != nil && *rec.CryptoType != sr25519CryptoType {
		return nil, fmt.Errorf("%w: crypto type %d, only sr25519 keys can sign upgrades", ErrUnsupportedKey, *rec.CryptoType)
	}

	uri, err := secretURI(&rec)
	if err != nil {
		return nil, err
	}

	kp, err := signature.KeyringPairFromSecret(uri, s.network)
	if err != nil {
		return nil, fmt.Errorf("%w: derive keypair: %v", ErrMalformedKey, err)
	}

	if rec.PublicKey != "" {
		recorded, err := hex.DecodeString(strings.TrimPrefix(rec.PublicKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: public key is not hex: %v", ErrMalformedKey, err)
		}
		if !bytes.Equal(recorded, kp.PublicKey) {
			return nil, fmt.Errorf("%w: derived public key differs from the one on file", ErrKeyMismatch)
		}
	}
	if rec.SS58Address != "" && rec.SS58Format == s.network && rec.SS58Address != kp.Address {
		return nil, fmt.Errorf("%w: derived address %s, file records %s", ErrKeyMismatch, kp.Address, rec.SS58Address)
	}

	s.logger.Debug("Loaded key %s (%s)", name, kp.Address)

	return &Credential{
		Name:      name,
		Address:   kp.Address,
		PublicKey: kp.PublicKey,
		URI:       uri,
	}, nil
}

// secretURI picks usable signing material from a key record.
func secretURI(rec *keyRecord) (string, error) {
	if m := strings.TrimSpace(rec.Mnemonic); m != "" {
		return m, nil
	}
	if seed := strings.TrimSpace(rec.SeedHex); seed != "" {
		return "0x" + strings.TrimPrefix(seed, "0x"), nil
	}
	if rec.PrivateKey != "" {
		return "", fmt.Errorf("%w: file carries only an expanded private key; a mnemonic or seed is required", ErrUnsupportedKey)
	}
	return "", fmt.Errorf("%w: no signing material in key file", ErrMalformedKey)
}

// List returns the names of all keys in the store directory, sorted.
// A missing directory yields an empty list, not an error.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read key directory %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), paths.KeyFileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), paths.KeyFileExt))
	}
	sort.Strings(names)
	return names, nil
}
