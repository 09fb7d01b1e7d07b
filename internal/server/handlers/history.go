package handlers

import (
	"context"
	"net/http"

	"github.com/finsight/finsight/internal/auth"
	apperrors "github.com/finsight/finsight/internal/errors"
	"github.com/finsight/finsight/internal/store"
)

// HistoryStore is the history storage surface the handler needs.
type HistoryStore interface {
	ListHistory(ctx context.Context, username string, limit int) ([]store.QueryRecord, error)
}

// HistoryHandler serves the advice history route.
type HistoryHandler struct {
	Store HistoryStore
}

// List returns the caller's recent advice history, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	records, err := h.Store.ListHistory(r.Context(), auth.Username(r.Context()), limit)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list history"))
		return
	}
	if records == nil {
		records = []store.QueryRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}
