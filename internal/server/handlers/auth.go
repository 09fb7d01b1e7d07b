package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/finsight/finsight/internal/auth"
	apperrors "github.com/finsight/finsight/internal/errors"
	"github.com/finsight/finsight/internal/store"
)

// UserStore is the account storage surface the auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error)
	GetUser(ctx context.Context, username string) (*store.User, error)
}

// AuthHandler serves registration and login.
type AuthHandler struct {
	Store  UserStore
	Issuer *auth.TokenIssuer
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

// Register creates an account and returns an access token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("invalid JSON body"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("username is required"))
		return
	}
	if len(req.Password) < 8 {
		respondWithError(w, r, apperrors.NewInvalidInputError("password must be at least 8 characters"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to process password"))
		return
	}

	user, err := h.Store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			respondWithError(w, r, apperrors.NewConflictError("username or email is already taken"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to create user"))
		return
	}

	h.issueToken(w, r, user.Username, http.StatusCreated)
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("invalid JSON body"))
		return
	}

	user, err := h.Store.GetUser(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, r, apperrors.NewUnauthorizedError(auth.ErrInvalidCredentials.Error()))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "failed to load user"))
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		respondWithError(w, r, apperrors.NewUnauthorizedError(auth.ErrInvalidCredentials.Error()))
		return
	}

	h.issueToken(w, r, user.Username, http.StatusOK)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, username string, status int) {
	token, expiresAt, err := h.Issuer.Issue(username)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to issue token"))
		return
	}

	respondJSON(w, status, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		Username:    username,
	})
}
