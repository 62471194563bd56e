package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/maths-quiz/internal/auth/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("admin login is not configured")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)

const (
	failureKey          = "admin:login_failures"
	defaultMaxFailures  = 5
	defaultFailureRetry = 15 * time.Minute
)

// Service checks the admin password and issues bearer tokens.
type Service struct {
	passwordHash string
	tokenMgr     *jwt.Manager
	redis        *redis.Client
	maxFailures  int64
	lockout      time.Duration
	logger       zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	// PasswordHash is the bcrypt hash of the admin password. Empty disables admin auth.
	PasswordHash string
	TokenConfig  jwt.TokenConfig
	// Redis, when set, counts failed logins and locks the endpoint after MaxFailures.
	Redis       *redis.Client
	MaxFailures int
	Lockout     time.Duration
}

// NewService creates an authentication service.
func NewService(opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.Lockout <= 0 {
		opts.Lockout = defaultFailureRetry
	}
	return &Service{
		passwordHash: opts.PasswordHash,
		tokenMgr:     jwt.NewManager(opts.TokenConfig),
		redis:        opts.Redis,
		maxFailures:  int64(opts.MaxFailures),
		lockout:      opts.Lockout,
		logger:       logger.With().Str("component", "auth").Logger(),
	}
}

// Enabled reports whether writes are gated behind an admin token.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// Login verifies the admin password and returns a signed token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	if err := s.checkLockout(ctx); err != nil {
		return nil, err
	}

	if err := VerifyPassword(s.passwordHash, req.Password); err != nil {
		s.recordFailure(ctx)
		s.logger.Warn().Msg("admin login failed")
		return nil, ErrInvalidCredentials
	}
	s.clearFailures(ctx)

	token, expires, err := s.tokenMgr.Generate(RoleAdmin, RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info().Time("expires_at", expires).Msg("admin logged in")
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenMgr.TTL() / time.Second),
		ExpiresAt:   expires,
	}, nil
}

// ValidateToken validates an admin token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	claims, err := s.tokenMgr.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, jwt.ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) checkLockout(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	n, err := s.redis.Get(ctx, failureKey).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		// fail open: the password check still applies
		s.logger.Warn().Err(err).Msg("read login failures")
		return nil
	}
	if n >= s.maxFailures {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context) {
	if s.redis == nil {
		return
	}
	pipe := s.redis.TxPipeline()
	pipe.Incr(ctx, failureKey)
	pipe.Expire(ctx, failureKey, s.lockout)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("record login failure")
	}
}

func (s *Service) clearFailures(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, failureKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("clear login failures")
	}
}
