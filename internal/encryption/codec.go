package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/hkdf"

	"smsglue/internal/models"
	"smsglue/internal/util"
)

var (
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrSecretUnavailable = errors.New("secret key not loaded")
)

const payloadInfo = "smsglue/payload:"

// Codec encrypts JSON-serializable values under the process secret, optionally
// mixed with a per-context salt (the account password for message caches).
// Every decode failure is reported as ErrDecryptionFailed.
type Codec struct {
	secret   []byte
	keyCache sync.Map // cacheKey(salt) -> derived AES key
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: append([]byte(nil), secret...)}
}

// Ready reports whether a secret has been loaded.
func (c *Codec) Ready() bool {
	return len(c.secret) > 0
}

func (c *Codec) key(salt string) ([]byte, error) {
	if !c.Ready() {
		return nil, ErrSecretUnavailable
	}
	ck := c.cacheKey(salt)
	if cached, ok := c.keyCache.Load(ck); ok {
		return cached.([]byte), nil
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, c.secret, nil, []byte(payloadInfo+salt))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	c.keyCache.Store(ck, key)
	return key, nil
}

// cacheKey keeps salts, which may be account passwords, out of the cache.
func (c *Codec) cacheKey(salt string) [sha256.Size]byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(salt))
	var k [sha256.Size]byte
	copy(k[:], mac.Sum(nil))
	return k
}

func (c *Codec) aead(salt string) (cipher.AEAD, error) {
	key, err := c.key(salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptPayload returns nonce||ciphertext of the JSON encoding of v.
func (c *Codec) EncryptPayload(v any, salt string) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	gcm, err := c.aead(salt)
	if err != nil {
		if errors.Is(err, ErrSecretUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptPayload opens data and unmarshals it into out.
func (c *Codec) DecryptPayload(data []byte, salt string, out any) error {
	gcm, err := c.aead(salt)
	if err != nil {
		return ErrDecryptionFailed
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize+gcm.Overhead() {
		return ErrDecryptionFailed
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrDecryptionFailed
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return ErrDecryptionFailed
	}
	return nil
}

// EncodeToken wraps credentials into a URL-safe token of the form
// "<hint>-<ciphertext>", where hint is the last four DID digits in clear.
func (c *Codec) EncodeToken(creds models.AccountCredentials) (string, error) {
	creds = creds.Normalize()
	data, err := c.EncryptPayload(creds, "")
	if err != nil {
		return "", err
	}
	return TokenHint(creds.DID) + "-" + base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeToken reverses EncodeToken.
func (c *Codec) DecodeToken(token string) (models.AccountCredentials, error) {
	var creds models.AccountCredentials

	hint, encoded, found := strings.Cut(strings.TrimSpace(token), "-")
	if !found || !util.IsDigits(hint) {
		return creds, ErrDecryptionFailed
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return creds, ErrDecryptionFailed
	}
	if err := c.DecryptPayload(data, "", &creds); err != nil {
		return creds, err
	}
	creds = creds.Normalize()
	if TokenHint(creds.DID) != hint {
		return models.AccountCredentials{}, ErrDecryptionFailed
	}
	return creds, nil
}

// TokenHint returns the clear-text routing hint for a DID.
func TokenHint(did string) string {
	did = util.DigitsOnly(did)
	if len(did) > 4 {
		return did[len(did)-4:]
	}
	if did == "" {
		return "0"
	}
	return did
}

// ClearCache drops every derived key.
func (c *Codec) ClearCache() {
	c.keyCache.Range(func(key, value interface{}) bool {
		c.keyCache.Delete(key)
		return true
	})
}
