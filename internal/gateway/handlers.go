package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/quietbay/paydrop/internal/httpx"
	"github.com/quietbay/paydrop/internal/ledger"
	"github.com/quietbay/paydrop/internal/shop"
)

type claimResponse struct {
	OK         bool   `json:"ok"`
	URL        string `json:"url"`
	ItemID     string `json:"item_id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

func (rt Router) handleClaim(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	item := r.URL.Query().Get("item")

	// Bound the whole orchestration, payment provider included.
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := rt.Claims.Claim(ctx, ref, item)
	if err != nil {
		rt.writeClaimError(w, r, err)
		return
	}

	httpx.NoStore(w)
	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, claimResponse{
			OK:         true,
			URL:        res.URL,
			ItemID:     res.ItemID,
			TTLSeconds: int64(res.TTL.Seconds()),
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := claimPageData{
		ItemID:     res.ItemID,
		URL:        res.URL,
		TTLMinutes: int(res.TTL.Minutes()),
	}
	if err := claimPage.Execute(w, data); err != nil {
		log.Printf("claim page render: %v", err)
	}
}

func (rt Router) writeClaimError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shop.ErrInvalidRequest):
		httpx.WriteError(w, http.StatusBadRequest, "ref parameter required")
	case errors.Is(err, shop.ErrAlreadyProcessed):
		httpx.WriteError(w, http.StatusConflict, "purchase already processed")
	case errors.Is(err, shop.ErrPaymentNotConfirmed):
		httpx.WriteError(w, http.StatusPaymentRequired, "payment could not be confirmed")
	case errors.Is(err, shop.ErrNoItemAvailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, "no item available")
	default:
		log.Printf("claim: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "claim failed")
	}
}

func (rt Router) handleGate(w http.ResponseWriter, r *http.Request, token string) {
	rec, err := rt.Downloads.Ledger.Peek(r.Context(), token)
	if err != nil {
		if errors.Is(err, ledger.ErrTokenInvalid) {
			writeGone(w)
			return
		}
		log.Printf("gate: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "download unavailable")
		return
	}

	httpx.NoStore(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := gatePageData{ItemID: rec.ItemID, FileURL: "/file/" + token}
	if err := gatePage.Execute(w, data); err != nil {
		log.Printf("gate page render: %v", err)
	}
}

func (rt Router) handleFile(w http.ResponseWriter, r *http.Request, token string) {
	res, err := rt.Downloads.Serve(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrTokenInvalid):
			writeGone(w)
		case errors.Is(err, shop.ErrStorageInconsistency):
			log.Printf("ALERT: %v", err)
			httpx.WriteError(w, http.StatusInternalServerError, "file temporarily unavailable")
		default:
			log.Printf("download: %v", err)
			httpx.WriteError(w, http.StatusInternalServerError, "download failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()

	httpx.NoStore(w)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("X-Item-Id", res.ItemID)
	if res.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", res.Size))
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		// The token is already burned; nothing to roll back.
		log.Printf("download: stream aborted for %s: %v", res.ItemID, err)
	}
}

func writeGone(w http.ResponseWriter) {
	httpx.NoStore(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusGone)
	if err := goneTemplate.Execute(w, nil); err != nil {
		log.Printf("gone page render: %v", err)
	}
}
