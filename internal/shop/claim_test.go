package shop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietbay/paydrop/internal/catalog"
	"github.com/quietbay/paydrop/internal/kv"
	"github.com/quietbay/paydrop/internal/ledger"
	"github.com/quietbay/paydrop/internal/payment"
)

const demoCatalog = `[{"id":"ebook_demo","path":"ebooks/demo.pdf","weight":1}]`

type fakeVerifier struct {
	orders     map[string]payment.Order
	getErr     error
	captureErr error
	captured   []string
}

func (f *fakeVerifier) GetOrder(ctx context.Context, id string) (payment.Order, error) {
	if f.getErr != nil {
		return payment.Order{}, f.getErr
	}
	ord, ok := f.orders[id]
	if !ok {
		return payment.Order{}, errors.New("order not found")
	}
	return ord, nil
}

func (f *fakeVerifier) CaptureOrder(ctx context.Context, id string) (payment.Order, error) {
	f.captured = append(f.captured, id)
	if f.captureErr != nil {
		return payment.Order{}, f.captureErr
	}
	ord := f.orders[id]
	ord.Status = payment.StatusCompleted
	f.orders[id] = ord
	return ord, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(event, message string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newClaimer(store kv.Store, catalogJSON string, v payment.Verifier) *Claimer {
	return &Claimer{
		Ledger:   &ledger.Ledger{Store: store},
		Catalog:  catalog.Loader{JSON: catalogJSON},
		Payments: v,
		BaseURL:  "https://shop.example",
		MinPrice: decimal.RequireFromString("10.00"),
		Currency: "EUR",
	}
}

func storeKeys(t *testing.T, store kv.Store) []string {
	t.Helper()
	tokens, err := store.Keys(context.Background(), "token:")
	require.NoError(t, err)
	claims, err := store.Keys(context.Background(), "claim:")
	require.NoError(t, err)
	return append(tokens, claims...)
}

func TestClaimRequiresRef(t *testing.T) {
	c := newClaimer(kv.NewMemoryStore(), demoCatalog, nil)

	_, err := c.Claim(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClaimCompletedOrder(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusCompleted, Amount: decimal.RequireFromString("10.00"), Currency: "EUR"},
	}}
	c := newClaimer(store, demoCatalog, v)

	res, err := c.Claim(context.Background(), "tx1", "")
	require.NoError(t, err)

	assert.Equal(t, "ebook_demo", res.ItemID)
	assert.Equal(t, time.Hour, res.TTL)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, 5*time.Second)
	assert.Equal(t, "https://shop.example/download/"+res.Token, res.URL)
	assert.False(t, res.Replayed)
}

func TestClaimTwiceReturnsSameToken(t *testing.T) {
	store := kv.NewMemoryStore()
	c := newClaimer(store, demoCatalog, nil)

	first, err := c.Claim(context.Background(), "tx1", "")
	require.NoError(t, err)
	second, err := c.Claim(context.Background(), "tx1", "")
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.URL, second.URL)
	assert.True(t, second.Replayed)

	// Only one token was ever minted.
	tokens, err := store.Keys(context.Background(), "token:")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestClaimReplaySkipsPaymentProvider(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusCompleted, Amount: decimal.RequireFromString("10.00"), Currency: "EUR"},
	}}
	c := newClaimer(store, demoCatalog, v)

	_, err := c.Claim(context.Background(), "tx1", "")
	require.NoError(t, err)

	// Provider going away must not break replays within the window.
	v.getErr = errors.New("provider down")
	res, err := c.Claim(context.Background(), "tx1", "")
	require.NoError(t, err)
	assert.True(t, res.Replayed)
}

func TestClaimEmptyCatalog(t *testing.T) {
	store := kv.NewMemoryStore()
	c := newClaimer(store, `[]`, nil)

	_, err := c.Claim(context.Background(), "tx1", "")
	assert.ErrorIs(t, err, ErrNoItemAvailable)
	assert.Empty(t, storeKeys(t, store), "failed claim must not write records")
}

func TestClaimAmountBelowMinimum(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusApproved, Amount: decimal.RequireFromString("9.99"), Currency: "EUR"},
	}}
	c := newClaimer(store, demoCatalog, v)

	_, err := c.Claim(context.Background(), "tx1", "")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
	assert.Empty(t, storeKeys(t, store))
}

func TestClaimWrongCurrency(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusCompleted, Amount: decimal.RequireFromString("10.00"), Currency: "USD"},
	}}
	c := newClaimer(store, demoCatalog, v)

	_, err := c.Claim(context.Background(), "tx1", "")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
	assert.Empty(t, storeKeys(t, store))
}

func TestClaimCapturesApprovedOrder(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusApproved, Amount: decimal.RequireFromString("10.00"), Currency: "EUR"},
	}}
	c := newClaimer(store, demoCatalog, v)

	res, err := c.Claim(context.Background(), "tx1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"tx1"}, v.captured)
	assert.NotEmpty(t, res.Token)
}

func TestClaimCaptureFailure(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{
		orders: map[string]payment.Order{
			"tx1": {ID: "tx1", Status: payment.StatusApproved, Amount: decimal.RequireFromString("10.00"), Currency: "EUR"},
		},
		captureErr: errors.New("capture declined"),
	}
	c := newClaimer(store, demoCatalog, v)

	_, err := c.Claim(context.Background(), "tx1", "")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
	assert.Empty(t, storeKeys(t, store))
}

func TestClaimNonFinalStatus(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusCreated, Amount: decimal.RequireFromString("10.00"), Currency: "EUR"},
	}}
	c := newClaimer(store, demoCatalog, v)

	_, err := c.Claim(context.Background(), "tx1", "")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
}

func TestClaimVerifierError(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{getErr: errors.New("timeout")}
	c := newClaimer(store, demoCatalog, v)

	_, err := c.Claim(context.Background(), "tx1", "")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
	assert.Empty(t, storeKeys(t, store))
}

func TestClaimStrictCapture(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusCompleted, Amount: decimal.RequireFromString("10.00"), Currency: "EUR"},
	}}
	c := newClaimer(store, demoCatalog, v)
	c.StrictCapture = true

	_, err := c.Claim(context.Background(), "tx1", "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Empty(t, storeKeys(t, store))
}

func TestClaimPrefersPaymentItemReference(t *testing.T) {
	store := kv.NewMemoryStore()
	v := &fakeVerifier{orders: map[string]payment.Order{
		"tx1": {ID: "tx1", Status: payment.StatusCompleted, Amount: decimal.RequireFromString("10.00"), Currency: "EUR", CustomID: "b"},
	}}
	cat := `[{"id":"a","path":"files/a.pdf"},{"id":"b","path":"files/b.pdf"}]`
	c := newClaimer(store, cat, v)

	res, err := c.Claim(context.Background(), "tx1", "a")
	require.NoError(t, err)
	assert.Equal(t, "b", res.ItemID)
}

func TestClaimRequestedItemWithoutPayment(t *testing.T) {
	store := kv.NewMemoryStore()
	cat := `[{"id":"a","path":"files/a.pdf","weight":1},{"id":"b","path":"files/b.pdf","weight":3}]`
	c := newClaimer(store, cat, nil)

	res, err := c.Claim(context.Background(), "tx1", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", res.ItemID)
}

func TestClaimNotifiesObserver(t *testing.T) {
	store := kv.NewMemoryStore()
	n := &fakeNotifier{}
	c := newClaimer(store, demoCatalog, nil)
	c.Notifier = n

	_, err := c.Claim(context.Background(), "tx1", "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 5*time.Millisecond)
}
