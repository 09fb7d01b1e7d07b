package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/finsight/finsight/internal/advisor"
	"github.com/finsight/finsight/internal/auth"
	apperrors "github.com/finsight/finsight/internal/errors"
	"github.com/finsight/finsight/internal/news"
	"github.com/finsight/finsight/internal/resilience"
	"github.com/finsight/finsight/internal/stocks"
)

// AdviceEngine generates advice for a validated request.
type AdviceEngine interface {
	Advise(ctx context.Context, req advisor.Request) (string, error)
}

// NewsFetcher returns formatted news context.
type NewsFetcher interface {
	Fetch(ctx context.Context, query string, numArticles, maxAgeHours int) (string, error)
}

// StockFetcher returns daily quote series.
type StockFetcher interface {
	Daily(ctx context.Context, symbol string) (*stocks.Series, error)
}

// AnalysisHandler serves advice, news, and stock endpoints.
type AnalysisHandler struct {
	Engine AdviceEngine
	News   NewsFetcher
	Stocks StockFetcher
}

type adviceRequest struct {
	Category         string `json:"category"`
	UserInput        string `json:"user_input"`
	Context          string `json:"context,omitempty"`
	PortfolioDetails string `json:"portfolio_details,omitempty"`
	DomainDetails    string `json:"domain_details,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
}

type adviceResponse struct {
	Result string `json:"result"`
}

// Advise handles POST advice requests.
func (h *AnalysisHandler) Advise(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("invalid JSON body"))
		return
	}

	category, err := advisor.ParseCategory(req.Category)
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	result, err := h.Engine.Advise(r.Context(), advisor.Request{
		Category:         category,
		UserInput:        req.UserInput,
		Context:          req.Context,
		PortfolioDetails: req.PortfolioDetails,
		DomainDetails:    req.DomainDetails,
		SessionID:        req.SessionID,
		Username:         auth.Username(r.Context()),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, adviceResponse{Result: result})
}

type newsResponse struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

// GetNews handles GET news-context requests.
func (h *AnalysisHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	articles, err := queryInt(r, "articles", 5)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	maxAgeHours, err := queryInt(r, "max_age_hours", 24)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	text, err := h.News.Fetch(r.Context(), query, articles, maxAgeHours)
	if err != nil {
		respondWithError(w, r, convertOutboundError(r.Context(), err, "failed to fetch news"))
		return
	}

	respondJSON(w, http.StatusOK, newsResponse{Query: query, Context: text})
}

// GetStock handles GET quote requests for one symbol.
func (h *AnalysisHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	series, err := h.Stocks.Daily(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, stocks.ErrInvalidSymbol) {
			respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
			return
		}
		respondWithError(w, r, convertOutboundError(r.Context(), err, "failed to fetch stock data"))
		return
	}

	respondJSON(w, http.StatusOK, series)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidInputError(name + " must be an integer")
	}
	return value, nil
}

// convertOutboundError maps outbound client failures onto the error taxonomy.
func convertOutboundError(ctx context.Context, err error, message string) error {
	switch {
	case errors.Is(err, resilience.ErrRateLimited):
		return apperrors.WrapRateLimited(ctx, err, "rate limit exceeded, try again shortly")
	case errors.Is(err, stocks.ErrMissingAPIKey), errors.Is(err, news.ErrMissingAPIKey):
		return apperrors.WrapConfigInvalid(ctx, err, message)
	default:
		return apperrors.WrapExternalService(ctx, err, message)
	}
}
