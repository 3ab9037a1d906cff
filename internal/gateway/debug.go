package gateway

import (
	"net/http"

	"github.com/quietbay/paydrop/internal/catalog"
	"github.com/quietbay/paydrop/internal/httpx"
	"github.com/quietbay/paydrop/internal/ledger"
)

// DebugHandler is the operator-only diagnostic surface. Unlike the
// public endpoints it may expose raw record contents, tokens included;
// that is the point of it.
type DebugHandler struct {
	Ledger  *ledger.Ledger
	Catalog catalog.Loader
}

func (h DebugHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Ledger.Tokens(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": len(recs), "tokens": recs})
}

func (h DebugHandler) Claims(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Ledger.Claims(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": len(recs), "claims": recs})
}

func (h DebugHandler) CatalogItems(w http.ResponseWriter, r *http.Request) {
	items, src := h.Catalog.Load()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"source": src, "items": items})
}
