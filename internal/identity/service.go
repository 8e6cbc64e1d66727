package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/beacon/internal/shared"
	"github.com/noah-isme/beacon/internal/token"
)

// Enqueuer schedules background work after a successful signup.
type Enqueuer interface {
	EnqueueWelcomeEmail(ctx context.Context, email, name string) error
}

// AuthResult pairs the non-secret identity projection with a fresh token.
type AuthResult struct {
	Identity Projection
	Token    string
}

// Service orchestrates the signup and signin pipelines.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	hasher   Hasher
	issuer   *token.Issuer
	validate *validator.Validate
	enqueuer Enqueuer
}

// NewService constructs a Service. enqueuer may be nil when no worker is
// deployed.
func NewService(logger *slog.Logger, repo Repository, hasher Hasher, issuer *token.Issuer, enqueuer Enqueuer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:   logger,
		repo:     repo,
		hasher:   hasher,
		issuer:   issuer,
		validate: validator.New(),
		enqueuer: enqueuer,
	}
}

// Signup registers a new identity and issues its first session token.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	req.Normalize()
	if issues := CheckStruct(s.validate, req); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, FormatIssues(issues))
	}

	// Uniqueness pre-check for a friendly conflict error. The unique index
	// remains the authoritative guarantee; a race that slips past this probe
	// is caught again at insert.
	_, err := s.repo.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, shared.ErrEmailTaken
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("create identity: %w", err)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("hash password", slog.Any("error", err))
		return nil, fmt.Errorf("create identity: %w", err)
	}

	proj, err := s.repo.Insert(ctx, req.Name, req.Email, digest, Role(req.Role))
	if err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			return nil, shared.ErrEmailTaken
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	signed, err := s.issuer.Sign(proj.ID, proj.Email, string(proj.Role))
	if err != nil {
		s.logger.Error("sign token", slog.Any("error", err))
		return nil, fmt.Errorf("create identity: %w", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueWelcomeEmail(ctx, proj.Email, proj.Name); err != nil {
			s.logger.Warn("enqueue welcome email", slog.String("email", proj.Email), slog.Any("error", err))
		}
	}

	s.logger.Info("identity registered", slog.Int64("id", proj.ID), slog.String("email", proj.Email))
	return &AuthResult{Identity: *proj, Token: signed}, nil
}

// Signin verifies credentials and issues a fresh session token. An unknown
// email and a wrong password yield the same error so callers cannot probe
// which one occurred.
func (s *Service) Signin(ctx context.Context, req SigninRequest) (*AuthResult, error) {
	req.Normalize()
	if issues := CheckStruct(s.validate, req); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, FormatIssues(issues))
	}

	rec, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("signin: %w", err)
	}

	if !s.hasher.Verify(req.Password, rec.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}

	signed, err := s.issuer.Sign(rec.ID, rec.Email, string(rec.Role))
	if err != nil {
		s.logger.Error("sign token", slog.Any("error", err))
		return nil, fmt.Errorf("signin: %w", err)
	}

	s.logger.Info("identity signed in", slog.Int64("id", rec.ID), slog.String("email", rec.Email))
	return &AuthResult{Identity: rec.Project(), Token: signed}, nil
}
