package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/config"
	"concertlog/api/internal/metrics"
	"concertlog/api/internal/models"
	"concertlog/api/internal/repository"
	"concertlog/api/internal/security"
)

type AuthService struct {
	users    UserStore
	limiter  LoginLimiter
	notifier Notifier
	cfg      *config.AppConfig
	log      zerolog.Logger
}

// NewAuthService builds the service. limiter may be nil to disable login
// throttling.
func NewAuthService(
	users UserStore,
	limiter LoginLimiter,
	notifier Notifier,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		limiter:  limiter,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
}

type AuthResult struct {
	User  models.User
	Token string
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	user := models.User{
		Name:  strings.TrimSpace(input.Name),
		Email: models.NormalizeEmail(input.Email),
		Age:   models.DefaultAge,
	}
	if input.Age != nil {
		user.Age = *input.Age
	}

	result := user.Validate()
	result.Merge(models.ValidatePassword(input.Password))
	if err := result.Err(); err != nil {
		return AuthResult{}, err
	}

	hash, err := security.HashPassword(strings.TrimSpace(input.Password), s.cfg.Security.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}
	user.Password = hash

	if err := s.users.Create(ctx, &user); err != nil {
		return AuthResult{}, err
	}

	s.notifier.Welcome(user.Email, user.Name)

	token, err := s.issueToken(ctx, &user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = models.NormalizeEmail(email)

	if s.limiter != nil {
		allowed, err := s.limiter.Allowed(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login throttle unavailable")
		} else if !allowed {
			metrics.AuthFailuresTotal.WithLabelValues("throttled").Inc()
			return AuthResult{}, ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, err
		}
		security.BurnPasswordCheck(password)
		s.loginFailed(ctx, email)
		return AuthResult{}, ErrInvalidCredentials
	}

	if !security.VerifyPassword(strings.TrimSpace(password), user.Password) {
		s.loginFailed(ctx, email)
		return AuthResult{}, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("reset login throttle failed")
		}
	}

	token, err := s.issueToken(ctx, &user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email string) {
	metrics.AuthFailuresTotal.WithLabelValues("credentials").Inc()
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("record login failure failed")
	}
}

func (s *AuthService) issueToken(ctx context.Context, user *models.User) (string, error) {
	token, err := security.GenerateSessionToken(s.cfg.Security.JWTSecret, user.ID.Hex(), s.cfg.Security.TokenTTL)
	if err != nil {
		return "", err
	}
	if err := s.users.AddToken(ctx, user.ID, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	user.Tokens = append(user.Tokens, models.Token{Token: token})
	return token, nil
}

// Authenticate resolves a bearer token to the user whose token list still
// contains it.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	claims, err := security.ParseSessionToken(token, s.cfg.Security.JWTSecret)
	if err != nil {
		return s.rejectToken(err)
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return s.rejectToken(err)
	}
	user, err := s.users.FindByToken(ctx, id, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.rejectToken(err)
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *AuthService) rejectToken(cause error) (models.User, error) {
	metrics.AuthFailuresTotal.WithLabelValues("token").Inc()
	return models.User{}, fmt.Errorf("%w: %v", ErrUnauthenticated, cause)
}

func (s *AuthService) Logout(ctx context.Context, user models.User, token string) error {
	return s.users.RemoveToken(ctx, user.ID, token)
}

func (s *AuthService) LogoutAll(ctx context.Context, user models.User) error {
	return s.users.ClearTokens(ctx, user.ID)
}
