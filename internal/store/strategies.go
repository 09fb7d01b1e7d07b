package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RiskLevel classifies an investment strategy's risk appetite.
type RiskLevel string

const (
	RiskLow        RiskLevel = "low"
	RiskModerate   RiskLevel = "moderate"
	RiskHigh       RiskLevel = "high"
	RiskAggressive RiskLevel = "aggressive"
)

// ParseRiskLevel maps a request string onto the closed risk-level set.
func ParseRiskLevel(value string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(value))) {
	case RiskLow:
		return RiskLow, nil
	case RiskModerate:
		return RiskModerate, nil
	case RiskHigh:
		return RiskHigh, nil
	case RiskAggressive:
		return RiskAggressive, nil
	default:
		return "", fmt.Errorf("invalid risk level: %q", value)
	}
}

// Strategy is one saved investment strategy.
type Strategy struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	RiskLevel         RiskLevel `json:"risk_level"`
	TimeHorizonMonths int       `json:"time_horizon_months,omitempty"`
	Criteria          string    `json:"investment_criteria,omitempty"`
	TargetReturn      float64   `json:"target_return,omitempty"`
	MaxDrawdown       float64   `json:"max_drawdown,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ErrStrategyExists indicates a duplicate strategy name for the same user.
var ErrStrategyExists = errors.New("strategy already exists")

const strategyColumns = `id, username, name, COALESCE(description, ''), risk_level,
	COALESCE(time_horizon_months, 0), COALESCE(investment_criteria, ''),
	COALESCE(target_return, 0), COALESCE(max_drawdown, 0), created_at, updated_at`

// CreateStrategy saves a new strategy for the user.
func (s *Store) CreateStrategy(ctx context.Context, strategy Strategy) (*Strategy, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	strategy.Name = strings.TrimSpace(strategy.Name)
	if strategy.Name == "" {
		return nil, errors.New("strategy name is required")
	}
	if _, err := ParseRiskLevel(string(strategy.RiskLevel)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := s.DB.ExecContext(ctx, `
		INSERT INTO investment_strategies
			(username, name, description, risk_level, time_horizon_months,
			 investment_criteria, target_return, max_drawdown, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(strategy.Username), strategy.Name, nullable(strategy.Description),
		string(strategy.RiskLevel), strategy.TimeHorizonMonths, nullable(strategy.Criteria),
		strategy.TargetReturn, strategy.MaxDrawdown, now.Unix(), now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrStrategyExists
		}
		return nil, fmt.Errorf("create strategy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create strategy: %w", err)
	}

	strategy.ID = id
	strategy.CreatedAt = now
	strategy.UpdatedAt = now
	return &strategy, nil
}

// GetStrategy loads one strategy owned by the user.
func (s *Store) GetStrategy(ctx context.Context, username string, id int64) (*Strategy, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT `+strategyColumns+`
		FROM investment_strategies
		WHERE id = ? AND username = ?`,
		id, strings.TrimSpace(username))

	strategy, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get strategy: %w", err)
	}
	return strategy, nil
}

// ListStrategies returns all strategies owned by the user, newest first.
func (s *Store) ListStrategies(ctx context.Context, username string) ([]Strategy, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+strategyColumns+`
		FROM investment_strategies
		WHERE username = ?
		ORDER BY created_at DESC, id DESC`,
		strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close() // nolint:errcheck // read-only cursor

	var strategies []Strategy
	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		strategies = append(strategies, *strategy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	return strategies, nil
}

// UpdateStrategy replaces the mutable fields of a strategy owned by the user.
func (s *Store) UpdateStrategy(ctx context.Context, strategy Strategy) (*Strategy, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	strategy.Name = strings.TrimSpace(strategy.Name)
	if strategy.Name == "" {
		return nil, errors.New("strategy name is required")
	}
	if _, err := ParseRiskLevel(string(strategy.RiskLevel)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := s.DB.ExecContext(ctx, `
		UPDATE investment_strategies
		SET name = ?, description = ?, risk_level = ?, time_horizon_months = ?,
			investment_criteria = ?, target_return = ?, max_drawdown = ?, updated_at = ?
		WHERE id = ? AND username = ?`,
		strategy.Name, nullable(strategy.Description), string(strategy.RiskLevel),
		strategy.TimeHorizonMonths, nullable(strategy.Criteria), strategy.TargetReturn,
		strategy.MaxDrawdown, now.Unix(), strategy.ID, strings.TrimSpace(strategy.Username))
	if err != nil {
		return nil, fmt.Errorf("update strategy: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update strategy: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.GetStrategy(ctx, strategy.Username, strategy.ID)
}

// DeleteStrategy removes a strategy owned by the user.
func (s *Store) DeleteStrategy(ctx context.Context, username string, id int64) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM investment_strategies WHERE id = ? AND username = ?`,
		id, strings.TrimSpace(username))
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (*Strategy, error) {
	var (
		strategy  Strategy
		riskLevel string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&strategy.ID, &strategy.Username, &strategy.Name, &strategy.Description,
		&riskLevel, &strategy.TimeHorizonMonths, &strategy.Criteria,
		&strategy.TargetReturn, &strategy.MaxDrawdown, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	strategy.RiskLevel = RiskLevel(riskLevel)
	strategy.CreatedAt = time.Unix(createdAt, 0).UTC()
	strategy.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &strategy, nil
}
