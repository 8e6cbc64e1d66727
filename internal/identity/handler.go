package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/beacon/internal/observability"
	"github.com/noah-isme/beacon/internal/platform/httpx"
	"github.com/noah-isme/beacon/internal/shared"
	"github.com/noah-isme/beacon/internal/token"
)

// TokenCookie is the cookie name carrying the session token.
const TokenCookie = "token"

// Handler wires HTTP endpoints for the authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
	issuer  *token.Issuer
	cookies *shared.CookieManager
	metrics *observability.Metrics
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, issuer *token.Issuer, cookies *shared.CookieManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		service: service,
		issuer:  issuer,
		cookies: cookies,
		metrics: metrics,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/signin", h.signin)
	r.Post("/signout", h.signout)
	r.Get("/me", h.me)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}

	result, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.metrics.AuthAttempt("signup", outcomeLabel(err))
		if errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrEmailTaken) {
			h.logger.Warn("signup rejected", slog.String("reason", outcomeLabel(err)))
		} else {
			h.logger.Error("signup failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.metrics.AuthAttempt("signup", "success")
	h.cookies.Set(w, TokenCookie, result.Token)
	httpx.JSON(w, http.StatusCreated, result.Identity)
}

func (h *Handler) signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}

	result, err := h.service.Signin(r.Context(), req)
	if err != nil {
		h.metrics.AuthAttempt("signin", outcomeLabel(err))
		if errors.Is(err, shared.ErrValidation) || errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Warn("signin rejected", slog.String("reason", outcomeLabel(err)))
		} else {
			h.logger.Error("signin failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.metrics.AuthAttempt("signin", "success")
	h.cookies.Set(w, TokenCookie, result.Token)
	httpx.JSON(w, http.StatusOK, result.Identity)
}

func (h *Handler) signout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; signout only clears the client cookie.
	h.cookies.Clear(w, TokenCookie)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.cookies.Get(r, TokenCookie)
	if !ok {
		httpx.RespondError(w, shared.ErrTokenInvalid)
		return
	}
	claims, err := h.issuer.Verify(raw)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":    claims.UserID,
		"email": claims.Email,
		"role":  claims.Role,
	})
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrEmailTaken):
		return "conflict"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "rejected"
	default:
		return "error"
	}
}
