// Package wallet loads the operator's signing key from disk.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/Fantasim/splreaper/internal/config"
)

// LoadKeypair reads the operator keypair at path. Two encodings are accepted:
// the Solana CLI JSON array of 64 byte values, and a base58 string of the same
// 64 bytes. The second half of the key must be the public key of the first.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", config.ErrKeyFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", config.ErrInvalidKeyFile, path, err)
	}

	key, err := ParseKeypair(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Info("operator keypair loaded",
		"path", path,
		"publicKey", key.PublicKey().String(),
	)

	return key, nil
}

// ParseKeypair decodes keypair file content.
func ParseKeypair(content []byte) (solana.PrivateKey, error) {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", config.ErrInvalidKeyFile)
	}

	var raw []byte
	if content[0] == '[' {
		key, err := solana.PrivateKeyFromSolanaKeygenFileBytes(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidKeyFile, err)
		}
		raw = key
	} else {
		decoded, err := base58.Decode(string(content))
		if err != nil {
			return nil, fmt.Errorf("%w: not a JSON byte array or base58 string: %v", config.ErrInvalidKeyFile, err)
		}
		raw = decoded
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", config.ErrInvalidKeyFile, len(raw), ed25519.PrivateKeySize)
	}

	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, raw[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: embedded public key %s does not match seed (derived %s)",
			config.ErrInvalidKeyFile, base58.Encode(raw[ed25519.SeedSize:]), base58.Encode(derived))
	}

	return solana.PrivateKey(raw), nil
}
