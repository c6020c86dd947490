package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	defaultConfirmationTTL = 2 * time.Minute
	confirmationMACSize    = 16
)

// Confirmer issues short lived tokens that tie a revert to the reviewer who
// previewed it.
type Confirmer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewConfirmer builds a Confirmer keyed with secret. An empty secret selects a
// random per-process key. Secrets longer than a blake2b key are hashed first.
func NewConfirmer(secret []byte, ttl time.Duration) (*Confirmer, error) {
	key := secret
	switch {
	case len(key) == 0:
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate confirmation key: %w", err)
		}
	case len(key) > blake2b.Size:
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	if ttl <= 0 {
		ttl = defaultConfirmationTTL
	}
	return &Confirmer{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a token for requestID and reviewerID along with its expiry.
func (c *Confirmer) Issue(requestID, reviewerID string) (string, time.Time) {
	expires := c.now().Add(c.ttl).Truncate(time.Second)
	buf := make([]byte, 8, 8+confirmationMACSize)
	binary.BigEndian.PutUint64(buf, uint64(expires.Unix()))
	buf = append(buf, c.mac(requestID, reviewerID, expires.Unix())...)
	return base64.RawURLEncoding.EncodeToString(buf), expires
}

// Verify checks token against requestID and reviewerID. Any mismatch,
// malformed input or expiry yields ErrConfirmationRequired.
func (c *Confirmer) Verify(token, requestID, reviewerID string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != 8+confirmationMACSize {
		return ErrConfirmationRequired
	}
	expires := int64(binary.BigEndian.Uint64(raw[:8]))
	if c.now().Unix() > expires {
		return ErrConfirmationRequired
	}
	if subtle.ConstantTimeCompare(raw[8:], c.mac(requestID, reviewerID, expires)) != 1 {
		return ErrConfirmationRequired
	}
	return nil
}

func (c *Confirmer) mac(requestID, reviewerID string, expires int64) []byte {
	h, err := blake2b.New256(c.key)
	if err != nil {
		// key length is bounded in NewConfirmer
		panic(err)
	}
	fmt.Fprintf(h, "revert\x00%s\x00%s\x00%d", requestID, reviewerID, expires)
	return h.Sum(nil)[:confirmationMACSize]
}
