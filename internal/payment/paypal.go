package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// PayPal talks to the Orders v2 API. The zero value is not usable;
// ClientID and Secret are required, BaseURL defaults to the live API
// (point it at api-m.sandbox.paypal.com for sandbox).
type PayPal struct {
	BaseURL  string
	ClientID string
	Secret   string
	// HTTP underlies the OAuth2 client when set (tests).
	HTTP *http.Client

	once   sync.Once
	client *http.Client
}

func (p *PayPal) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if base == "" {
		base = "https://api-m.paypal.com"
	}
	return base
}

func (p *PayPal) httpClient() *http.Client {
	p.once.Do(func() {
		cfg := clientcredentials.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.Secret,
			TokenURL:     p.baseURL() + "/v1/oauth2/token",
		}
		ctx := context.Background()
		if p.HTTP != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, p.HTTP)
		}
		c := cfg.Client(ctx)
		c.Timeout = 10 * time.Second
		p.client = c
	})
	return p.client
}

func (p *PayPal) GetOrder(ctx context.Context, id string) (Order, error) {
	return p.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(id))
}

func (p *PayPal) CaptureOrder(ctx context.Context, id string) (Order, error) {
	return p.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(id)+"/capture")
}

func (p *PayPal) do(ctx context.Context, method, path string) (Order, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL()+path, nil)
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		// Full order representation instead of the minimal capture ack.
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Order{}, fmt.Errorf("paypal http %d", resp.StatusCode)
	}

	var or orderResponse
	if err := json.Unmarshal(b, &or); err != nil {
		return Order{}, fmt.Errorf("decode paypal order: %w", err)
	}
	return or.toOrder()
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	CustomID string        `json:"custom_id"`
	Amount   *moneyValue   `json:"amount"`
	Payments *unitPayments `json:"payments"`
}

type unitPayments struct {
	Captures []captureResult `json:"captures"`
}

type captureResult struct {
	Status string      `json:"status"`
	Amount *moneyValue `json:"amount"`
}

type moneyValue struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func (or orderResponse) toOrder() (Order, error) {
	out := Order{ID: or.ID, Status: Status(strings.ToUpper(strings.TrimSpace(or.Status)))}
	if len(or.PurchaseUnits) == 0 {
		return out, nil
	}
	unit := or.PurchaseUnits[0]
	out.CustomID = strings.TrimSpace(unit.CustomID)

	// Prefer the actually captured amount over the order amount.
	money := unit.Amount
	if unit.Payments != nil {
		for _, c := range unit.Payments.Captures {
			if strings.EqualFold(c.Status, string(StatusCompleted)) && c.Amount != nil {
				money = c.Amount
				break
			}
		}
	}
	if money != nil {
		amt, err := decimal.NewFromString(strings.TrimSpace(money.Value))
		if err != nil {
			return Order{}, fmt.Errorf("parse paypal amount %q: %w", money.Value, err)
		}
		out.Amount = amt
		out.Currency = strings.ToUpper(strings.TrimSpace(money.CurrencyCode))
	}
	return out, nil
}
