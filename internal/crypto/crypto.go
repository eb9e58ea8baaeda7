package crypto

import (
	"encoding/hex"
	"errors"

	"github.com/gtank/cryptopasta"
)

var ErrKeyLength = errors.New("key must decode to 32 bytes")

// Cipher seals transcripts before they reach the archive ledger.
type Cipher struct {
	key *[32]byte
}

// NewCipher takes a hex encoded 256-bit key. An empty key yields a nil
// Cipher, which passes values through unchanged.
func NewCipher(hexKey string) (*Cipher, error) {
	if hexKey == "" {
		return nil, nil
	}

	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, ErrKeyLength
	}

	return &Cipher{key: (*[32]byte)(raw)}, nil
}

func (c *Cipher) Encrypt(value string) (string, error) {
	if c == nil {
		return value, nil
	}

	encryptedValue, err := cryptopasta.Encrypt([]byte(value), c.key)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(encryptedValue), nil
}

func (c *Cipher) Decrypt(value string) (string, error) {
	if c == nil {
		return value, nil
	}

	decodedValue, err := hex.DecodeString(value)
	if err != nil {
		return "", err
	}

	decryptedValue, err := cryptopasta.Decrypt(decodedValue, c.key)
	if err != nil {
		return "", err
	}

	return string(decryptedValue), nil
}
