package ledger

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/quietbay/paydrop/internal/kv"
)

const (
	tokenKeyPrefix = "token:"
	claimKeyPrefix = "claim:"
)

// ErrTokenInvalid covers every way a token can be unusable: never
// minted, already consumed, or expired. The ledger cannot tell these
// apart and deliberately does not try; reporting them separately would
// leak token history.
var ErrTokenInvalid = errors.New("token invalid or expired")

// TokenRecord is the ledger entry for one unredeemed token. Its
// existence in the store is the "unused and unexpired" signal; there is
// no separate used flag.
type TokenRecord struct {
	Token          string    `json:"token"`
	Path           string    `json:"path"`
	ItemID         string    `json:"item_id"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	TransactionRef string    `json:"transaction_ref"`
}

// ClaimRecord pins a transaction reference to the token it already
// produced, so a replayed claim returns the same token instead of
// minting another. At most one live record exists per reference.
type ClaimRecord struct {
	ID             string    `json:"id"`
	TransactionRef string    `json:"transaction_ref"`
	Token          string    `json:"token"`
	ItemID         string    `json:"item_id"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Ledger mints, validates and consumes one-time download tokens on top
// of a TTL key-value store.
type Ledger struct {
	Store kv.Store
	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// NewToken returns a fresh opaque token: 32 bytes from crypto/rand,
// base64url without padding (256 bits of entropy).
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Mint writes a token record and the matching claim record, both with
// the same TTL so a replayed claim can never report a token the store
// has already dropped. A failed claim write is tolerated: the worst
// case is a later duplicate mint for the same already-paid reference,
// never an unpaid grant.
func (l *Ledger) Mint(ctx context.Context, path, itemID, transactionRef string, ttl time.Duration) (TokenRecord, error) {
	token, err := NewToken()
	if err != nil {
		return TokenRecord{}, err
	}

	now := l.now()
	rec := TokenRecord{
		Token:          token,
		Path:           path,
		ItemID:         itemID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		TransactionRef: transactionRef,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return TokenRecord{}, err
	}
	if err := l.Store.Set(ctx, tokenKeyPrefix+token, b, ttl); err != nil {
		return TokenRecord{}, fmt.Errorf("write token record: %w", err)
	}

	claim := ClaimRecord{
		ID:             uuid.NewString(),
		TransactionRef: transactionRef,
		Token:          token,
		ItemID:         itemID,
		IssuedAt:       now,
		ExpiresAt:      rec.ExpiresAt,
	}
	cb, err := json.Marshal(claim)
	if err == nil {
		err = l.Store.Set(ctx, claimKeyPrefix+transactionRef, cb, ttl)
	}
	if err != nil {
		log.Printf("ledger: claim record for %q not written: %v", transactionRef, err)
	}

	return rec, nil
}

// LookupClaim returns the live claim record for a transaction
// reference, if any.
func (l *Ledger) LookupClaim(ctx context.Context, transactionRef string) (ClaimRecord, bool, error) {
	b, found, err := l.Store.Get(ctx, claimKeyPrefix+transactionRef)
	if err != nil {
		return ClaimRecord{}, false, fmt.Errorf("read claim record: %w", err)
	}
	if !found {
		return ClaimRecord{}, false, nil
	}
	var claim ClaimRecord
	if err := json.Unmarshal(b, &claim); err != nil {
		return ClaimRecord{}, false, fmt.Errorf("decode claim record: %w", err)
	}
	if !claim.ExpiresAt.After(l.now()) {
		// Store TTL is authoritative but clocks may lag; treat as gone.
		_ = l.Store.Delete(ctx, claimKeyPrefix+transactionRef)
		return ClaimRecord{}, false, nil
	}
	return claim, true, nil
}

// Redeem consumes a token: exactly one successful call per token
// returns its record, every later call gets ErrTokenInvalid. When the
// store supports atomic get-and-delete that guarantee is strict;
// otherwise the get-then-delete fallback leaves a narrow window where
// two concurrent redeems can both succeed.
func (l *Ledger) Redeem(ctx context.Context, token string) (TokenRecord, error) {
	if token == "" {
		return TokenRecord{}, ErrTokenInvalid
	}
	key := tokenKeyPrefix + token

	var (
		b     []byte
		found bool
		err   error
	)
	if gd, ok := l.Store.(kv.GetDeleter); ok {
		b, found, err = gd.GetDel(ctx, key)
	} else {
		b, found, err = l.Store.Get(ctx, key)
		if err == nil && found {
			if derr := l.Store.Delete(ctx, key); derr != nil {
				return TokenRecord{}, fmt.Errorf("consume token: %w", derr)
			}
		}
	}
	if err != nil {
		return TokenRecord{}, fmt.Errorf("read token record: %w", err)
	}
	if !found {
		return TokenRecord{}, ErrTokenInvalid
	}

	var rec TokenRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return TokenRecord{}, fmt.Errorf("decode token record: %w", err)
	}
	if !rec.ExpiresAt.After(l.now()) {
		return TokenRecord{}, ErrTokenInvalid
	}
	return rec, nil
}

// Peek reads a token record without consuming it. The download gate
// page uses it so rendering the page cannot burn the token.
func (l *Ledger) Peek(ctx context.Context, token string) (TokenRecord, error) {
	if token == "" {
		return TokenRecord{}, ErrTokenInvalid
	}
	b, found, err := l.Store.Get(ctx, tokenKeyPrefix+token)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("read token record: %w", err)
	}
	if !found {
		return TokenRecord{}, ErrTokenInvalid
	}
	var rec TokenRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return TokenRecord{}, fmt.Errorf("decode token record: %w", err)
	}
	if !rec.ExpiresAt.After(l.now()) {
		return TokenRecord{}, ErrTokenInvalid
	}
	return rec, nil
}

// Tokens lists the live token records, for the diagnostic surface.
func (l *Ledger) Tokens(ctx context.Context) ([]TokenRecord, error) {
	keys, err := l.Store.Keys(ctx, tokenKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]TokenRecord, 0, len(keys))
	for _, k := range keys {
		b, found, err := l.Store.Get(ctx, k)
		if err != nil || !found {
			continue
		}
		var rec TokenRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Claims lists the live claim records, for the diagnostic surface.
func (l *Ledger) Claims(ctx context.Context) ([]ClaimRecord, error) {
	keys, err := l.Store.Keys(ctx, claimKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]ClaimRecord, 0, len(keys))
	for _, k := range keys {
		b, found, err := l.Store.Get(ctx, k)
		if err != nil || !found {
			continue
		}
		var rec ClaimRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
