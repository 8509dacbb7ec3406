package upgrade

import (
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/altuslabsxyz/chainup/internal/paths"
)

// Artifact is a runtime wasm blob staged for upload.
type Artifact struct {
	Path string // Resolved path the blob was read from
	Code []byte // Raw wasm bytes
	Hash string // 0x-prefixed blake2-256 of Code
}

// Size returns the blob size in bytes.
func (a *Artifact) Size() int {
	return len(a.Code)
}

// SizeMB returns the blob size in mebibytes for display.
func (a *Artifact) SizeMB() float64 {
	return float64(len(a.Code)) / (1024 * 1024)
}

// LoadArtifact reads the runtime blob at path. A leading "~" is expanded.
// Empty files are rejected before anything is signed.
func LoadArtifact(path string) (*Artifact, error) {
	resolved, err := paths.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("resolve wasm path: %w", err)
	}

	code, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, resolved)
		}
		return nil, fmt.Errorf("read wasm file %s: %w", resolved, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyArtifact, resolved)
	}

	sum := blake2b.Sum256(code)
	return &Artifact{
		Path: resolved,
		Code: code,
		Hash: "0x" + hex.EncodeToString(sum[:]),
	}, nil
}
