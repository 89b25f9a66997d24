package hashing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"smsglue/internal/encryption"
	"smsglue/internal/util"
)

var (
	ErrInvalidNumber     = errors.New("invalid destination number")
	ErrSecretUnavailable = errors.New("secret key not loaded")
)

const identifierInfo = "smsglue/identifier"

// IdentityDeriver turns a DID into the opaque account identifier used for
// cache keys and webhook URLs. The identifier is "<hint>-<hex HMAC-SHA256>"
// under a key derived from the process secret, so it is stable across
// restarts and cannot be reversed without the secret.
type IdentityDeriver struct {
	macKey []byte
}

func NewIdentityDeriver(secret []byte) (*IdentityDeriver, error) {
	if len(secret) == 0 {
		return nil, ErrSecretUnavailable
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte(identifierInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive identifier key: %w", err)
	}
	return &IdentityDeriver{macKey: key}, nil
}

// DeriveIdentifier normalizes number to its digits and returns its identifier.
func (d *IdentityDeriver) DeriveIdentifier(number string) (string, error) {
	digits := util.DigitsOnly(number)
	if digits == "" {
		return "", ErrInvalidNumber
	}

	mac := hmac.New(sha256.New, d.macKey)
	mac.Write([]byte(digits))
	return encryption.TokenHint(digits) + "-" + hex.EncodeToString(mac.Sum(nil)), nil
}

// ValidIdentifier checks the shape of an identifier received from a URL.
func ValidIdentifier(id string) bool {
	hint, tag, found := strings.Cut(id, "-")
	if !found || !util.IsDigits(hint) || len(hint) > 4 {
		return false
	}
	if len(tag) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(tag)
	return err == nil
}
