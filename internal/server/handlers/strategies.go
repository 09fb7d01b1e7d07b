package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/finsight/finsight/internal/auth"
	apperrors "github.com/finsight/finsight/internal/errors"
	"github.com/finsight/finsight/internal/store"
)

// StrategyStore is the strategy storage surface the handlers need.
type StrategyStore interface {
	CreateStrategy(ctx context.Context, strategy store.Strategy) (*store.Strategy, error)
	GetStrategy(ctx context.Context, username string, id int64) (*store.Strategy, error)
	ListStrategies(ctx context.Context, username string) ([]store.Strategy, error)
	UpdateStrategy(ctx context.Context, strategy store.Strategy) (*store.Strategy, error)
	DeleteStrategy(ctx context.Context, username string, id int64) error
}

// StrategiesHandler serves the investment-strategy CRUD routes. All routes
// require an authenticated user.
type StrategiesHandler struct {
	Store StrategyStore
}

type strategyRequest struct {
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	RiskLevel         string  `json:"risk_level"`
	TimeHorizonMonths int     `json:"time_horizon_months,omitempty"`
	Criteria          string  `json:"investment_criteria,omitempty"`
	TargetReturn      float64 `json:"target_return,omitempty"`
	MaxDrawdown       float64 `json:"max_drawdown,omitempty"`
}

func (req strategyRequest) toStrategy(username string) (store.Strategy, error) {
	riskLevel, err := store.ParseRiskLevel(req.RiskLevel)
	if err != nil {
		return store.Strategy{}, apperrors.NewInvalidInputError(err.Error())
	}
	return store.Strategy{
		Username:          username,
		Name:              req.Name,
		Description:       req.Description,
		RiskLevel:         riskLevel,
		TimeHorizonMonths: req.TimeHorizonMonths,
		Criteria:          req.Criteria,
		TargetReturn:      req.TargetReturn,
		MaxDrawdown:       req.MaxDrawdown,
	}, nil
}

// List returns all strategies owned by the caller.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.Store.ListStrategies(r.Context(), auth.Username(r.Context()))
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to list strategies"))
		return
	}
	if strategies == nil {
		strategies = []store.Strategy{}
	}
	respondJSON(w, http.StatusOK, strategies)
}

// Create saves a new strategy for the caller.
func (h *StrategiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("invalid JSON body"))
		return
	}

	strategy, err := req.toStrategy(auth.Username(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	created, err := h.Store.CreateStrategy(r.Context(), strategy)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrStrategyExists):
			respondWithError(w, r, apperrors.NewConflictError("a strategy with this name already exists"))
		case isInputError(err):
			respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		default:
			respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to create strategy"))
		}
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// Get returns one strategy owned by the caller.
func (h *StrategiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strategyID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	strategy, err := h.Store.GetStrategy(r.Context(), auth.Username(r.Context()), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, r, apperrors.NewNotFoundError("strategy not found"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load strategy"))
		return
	}

	respondJSON(w, http.StatusOK, strategy)
}

// Update replaces a strategy owned by the caller.
func (h *StrategiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strategyID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("invalid JSON body"))
		return
	}

	strategy, err := req.toStrategy(auth.Username(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	strategy.ID = id

	updated, err := h.Store.UpdateStrategy(r.Context(), strategy)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondWithError(w, r, apperrors.NewNotFoundError("strategy not found"))
		case isInputError(err):
			respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		default:
			respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to update strategy"))
		}
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete removes a strategy owned by the caller.
func (h *StrategiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strategyID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.Store.DeleteStrategy(r.Context(), auth.Username(r.Context()), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, r, apperrors.NewNotFoundError("strategy not found"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to delete strategy"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func strategyID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInputError("strategy id must be a positive integer")
	}
	return id, nil
}

func isInputError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return msg == "strategy name is required" || strings.HasPrefix(msg, "invalid risk level")
}
