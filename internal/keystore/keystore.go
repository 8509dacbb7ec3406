// Package keystore loads signing credentials from commune-format key files.
//
// A key file is a JSON envelope whose "data" field holds the key record as a
// JSON-encoded string, the way the commune CLI lays out ~/.commune/key/.
package keystore

import "errors"

// Sentinel errors for key store operations.
var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrMalformedKey   = errors.New("malformed key file")
	ErrUnsupportedKey = errors.New("unsupported key material")
	ErrKeyMismatch    = errors.New("key material does not match the recorded identity")
)

// Credential is a signing identity loaded from the key store.
type Credential struct {
	Name      string
	Address   string // SS58 address of the signing account
	PublicKey []byte // 32-byte sr25519 public key
	URI       string // Secret URI for signing: mnemonic or hex seed. Never log this.
}

// Store looks up signing credentials by name.
type Store interface {
	Load(name string) (*Credential, error)
	List() ([]string, error)
}
