package shop

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietbay/paydrop/internal/catalog"
	"github.com/quietbay/paydrop/internal/ledger"
	"github.com/quietbay/paydrop/internal/payment"
)

// Notifier receives best-effort observer messages. Implementations
// must never block the caller for long; workflows invoke it from a
// separate goroutine anyway.
type Notifier interface {
	Notify(event, message string)
}

type ClaimResult struct {
	Token     string
	ItemID    string
	URL       string
	ExpiresAt time.Time
	TTL       time.Duration
	// Replayed is true when an earlier claim for the same reference
	// already minted this token.
	Replayed bool
}

// Claimer turns a confirmed purchase reference into a one-time
// download link.
type Claimer struct {
	Ledger  *ledger.Ledger
	Catalog catalog.Loader
	// Payments may be nil, which disables payment verification
	// entirely (local development).
	Payments payment.Verifier
	Notifier Notifier

	BaseURL  string
	TokenTTL time.Duration
	MinPrice decimal.Decimal
	Currency string
	// StrictCapture rejects orders that were already COMPLETED before
	// this claim, once no live claim record remains for them.
	StrictCapture bool

	Now func() time.Time
}

func (c *Claimer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Claimer) ttl() time.Duration {
	if c.TokenTTL > 0 {
		return c.TokenTTL
	}
	return time.Hour
}

func (c *Claimer) Claim(ctx context.Context, transactionRef, requestedItem string) (ClaimResult, error) {
	transactionRef = strings.TrimSpace(transactionRef)
	if transactionRef == "" {
		return ClaimResult{}, fmt.Errorf("%w: transaction reference required", ErrInvalidRequest)
	}

	// Idempotent replay: a live claim always resolves to its original
	// token, whatever the payment provider says by now.
	if claim, found, err := c.Ledger.LookupClaim(ctx, transactionRef); err == nil && found {
		return ClaimResult{
			Token:     claim.Token,
			ItemID:    claim.ItemID,
			URL:       c.downloadURL(claim.Token),
			ExpiresAt: claim.ExpiresAt,
			TTL:       claim.ExpiresAt.Sub(c.now()),
			Replayed:  true,
		}, nil
	} else if err != nil {
		return ClaimResult{}, err
	}

	var requested string
	if c.Payments != nil {
		ord, err := c.verifyPayment(ctx, transactionRef)
		if err != nil {
			return ClaimResult{}, err
		}
		requested = ord.CustomID
	}
	if requested == "" {
		requested = requestedItem
	}

	items, src := c.Catalog.Load()
	if src == catalog.SourceDefault {
		log.Printf("claim: catalog sources unavailable, using built-in default")
	}
	item, ok := catalog.Pick(items, requested)
	if !ok {
		return ClaimResult{}, ErrNoItemAvailable
	}

	rec, err := c.Ledger.Mint(ctx, item.Path, item.ID, transactionRef, c.ttl())
	if err != nil {
		return ClaimResult{}, fmt.Errorf("mint token: %w", err)
	}

	if c.Notifier != nil {
		go c.Notifier.Notify("claim", fmt.Sprintf("issued %s for %s, expires %s",
			item.ID, transactionRef, rec.ExpiresAt.Format(time.RFC3339)))
	}

	return ClaimResult{
		Token:     rec.Token,
		ItemID:    rec.ItemID,
		URL:       c.downloadURL(rec.Token),
		ExpiresAt: rec.ExpiresAt,
		TTL:       c.ttl(),
	}, nil
}

// verifyPayment fails closed: any provider error, a non-final status,
// or money below the configured minimum rejects the claim before
// anything is written.
func (c *Claimer) verifyPayment(ctx context.Context, ref string) (payment.Order, error) {
	ord, err := c.Payments.GetOrder(ctx, ref)
	if err != nil {
		log.Printf("claim: get order %q: %v", ref, err)
		return payment.Order{}, ErrPaymentNotConfirmed
	}

	switch ord.Status {
	case payment.StatusApproved:
		ord, err = c.Payments.CaptureOrder(ctx, ref)
		if err != nil {
			log.Printf("claim: capture order %q: %v", ref, err)
			return payment.Order{}, ErrPaymentNotConfirmed
		}
		if ord.Status != payment.StatusCompleted {
			return payment.Order{}, ErrPaymentNotConfirmed
		}
	case payment.StatusCompleted:
		if c.StrictCapture {
			// The purchase was captured in an earlier claim window and
			// its claim record is gone; minting again is forbidden.
			return payment.Order{}, ErrAlreadyProcessed
		}
	default:
		return payment.Order{}, ErrPaymentNotConfirmed
	}

	if c.Currency != "" && !strings.EqualFold(ord.Currency, c.Currency) {
		return payment.Order{}, fmt.Errorf("%w: wrong currency", ErrPaymentNotConfirmed)
	}
	if c.MinPrice.IsPositive() && ord.Amount.LessThan(c.MinPrice) {
		return payment.Order{}, fmt.Errorf("%w: amount below minimum", ErrPaymentNotConfirmed)
	}
	return ord, nil
}

func (c *Claimer) downloadURL(token string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/download/" + token
}
