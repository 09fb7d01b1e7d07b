// Package advisor orchestrates advice generation: it validates the request,
// assembles news and book-insight context, renders the per-category prompt,
// and invokes the LLM client. Context sources degrade independently; only
// the LLM call itself can fail a request.
package advisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/advisor/prompt"
	"github.com/finsight/finsight/internal/ailink"
	"github.com/finsight/finsight/internal/config"
	finerrors "github.com/finsight/finsight/internal/errors"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/resilience"
)

// Fallback lines substituted when a context source is unavailable.
const (
	noNewsContext     = "No recent news context available."
	degradedUserError = "Sorry, I encountered an error while generating advice. Please try again."
)

// NewsSource supplies formatted news context for a query.
type NewsSource interface {
	Fetch(ctx context.Context, query string, numArticles, maxAgeHours int) (string, error)
}

// InsightSource supplies book-insight documents similar to a query.
type InsightSource interface {
	Enabled() bool
	Query(ctx context.Context, text string, n int) ([]string, error)
}

// Completer produces an LLM completion for a prompt pair.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// HistoryRecorder persists one advice exchange. Failures are logged and
// never fail the request.
type HistoryRecorder interface {
	RecordQuery(ctx context.Context, username, sessionID, category, query, response string) error
}

// Request is one advice request after transport decoding.
type Request struct {
	Category         Category
	UserInput        string
	Context          string
	PortfolioDetails string
	DomainDetails    string
	Username         string
	SessionID        string
}

// Engine wires the context sources, prompt registry, and LLM client.
type Engine struct {
	News     NewsSource
	Insights InsightSource
	LLM      Completer
	History  HistoryRecorder
	Prompts  *prompt.Registry
	Cfg      config.AdvisorConfig
}

// NewEngine builds an engine with the prompt registry resolved from
// configuration. A nil history recorder, including a typed nil carried
// inside the interface, disables persistence.
func NewEngine(cfg config.AdvisorConfig, news NewsSource, insights InsightSource, llm Completer, history HistoryRecorder) (*Engine, error) {
	registry, err := prompt.DefaultRegistry(cfg.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return &Engine{
		News:     news,
		Insights: insights,
		LLM:      llm,
		History:  normalizeRecorder(history),
		Prompts:  registry,
		Cfg:      cfg,
	}, nil
}

// normalizeRecorder flattens a typed nil recorder to a plain nil so the
// persistence guard in recordHistory holds.
func normalizeRecorder(history HistoryRecorder) HistoryRecorder {
	if history == nil {
		return nil
	}
	if v := reflect.ValueOf(history); v.Kind() == reflect.Ptr && v.IsNil() {
		return nil
	}
	return history
}

// Advise runs one request through validation, context assembly, and the LLM.
func (e *Engine) Advise(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	vars := prompt.Variables{
		UserInput:        Sanitize(req.UserInput),
		PortfolioDetails: Sanitize(req.PortfolioDetails),
		DomainDetails:    Sanitize(req.DomainDetails),
		Context:          e.assembleContext(ctx, req),
	}

	def, err := e.Prompts.Get(req.Category.String())
	if err != nil {
		return "", finerrors.WrapInternal(ctx, err, "prompt registry lookup failed")
	}

	systemPrompt, userPrompt, err := def.Render(vars)
	if err != nil {
		return "", finerrors.WrapInternal(ctx, err, "prompt rendering failed")
	}

	response, err := e.LLM.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		if logger := observability.Logger(); logger != nil {
			logger.Error("Advice generation failed",
				zap.String("category", req.Category.String()),
				zap.String("session_id", req.SessionID),
				zap.Error(err))
		}
		switch {
		case stderrors.Is(err, ailink.ErrMissingAPIKey):
			return "", finerrors.WrapConfigInvalid(ctx, err, degradedUserError)
		case stderrors.Is(err, resilience.ErrRateLimited):
			return "", finerrors.WrapRateLimited(ctx, err, degradedUserError)
		default:
			return "", finerrors.WrapExternalService(ctx, err, degradedUserError)
		}
	}

	e.recordHistory(ctx, req, response)
	return response, nil
}

func validate(req Request) error {
	if _, err := ParseCategory(req.Category.String()); err != nil {
		return finerrors.NewInvalidInputError(err.Error())
	}
	if strings.TrimSpace(req.UserInput) == "" {
		return finerrors.NewInvalidInputError("user_input is required")
	}
	if req.Category == CategoryPortfolio && strings.TrimSpace(req.PortfolioDetails) == "" {
		return finerrors.NewInvalidInputError("portfolio_details is required for portfolio advice")
	}
	if req.Category == CategoryDomain && strings.TrimSpace(req.DomainDetails) == "" {
		return finerrors.NewInvalidInputError("domain_details is required for domain advice")
	}
	return nil
}

// assembleContext gathers news and book-insight context. Each source
// degrades independently so an outage never blocks advice.
func (e *Engine) assembleContext(ctx context.Context, req Request) string {
	logger := observability.Logger()
	sections := make([]string, 0, 3)

	newsContext := noNewsContext
	if e.News != nil {
		fetched, err := e.News.Fetch(ctx, req.UserInput, e.Cfg.NewsArticles, e.Cfg.NewsMaxAgeHours)
		if err != nil {
			if logger != nil {
				logger.Warn("News context unavailable, degrading",
					zap.String("category", req.Category.String()),
					zap.Error(err))
			}
		} else {
			newsContext = fetched
		}
	}
	sections = append(sections, newsContext)

	if e.Insights != nil && e.Insights.Enabled() {
		docs, err := e.Insights.Query(ctx, req.UserInput, e.Cfg.BookInsights)
		switch {
		case err != nil:
			if logger != nil {
				logger.Warn("Book insights unavailable, degrading", zap.Error(err))
			}
		case len(docs) > 0:
			var b strings.Builder
			b.WriteString("Key Insights from Finance Literature:")
			for _, doc := range docs {
				b.WriteString("\n- ")
				b.WriteString(doc)
			}
			sections = append(sections, b.String())
		}
	}

	if extra := Sanitize(req.Context); extra != "" {
		sections = append(sections, extra)
	}

	return strings.Join(sections, "\n\n")
}

func (e *Engine) recordHistory(ctx context.Context, req Request, response string) {
	if e.History == nil {
		return
	}
	err := e.History.RecordQuery(ctx, req.Username, req.SessionID, req.Category.String(), Sanitize(req.UserInput), response)
	if err == nil {
		return
	}
	if logger := observability.Logger(); logger != nil {
		logger.Warn("Failed to record query history",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
	}
}
