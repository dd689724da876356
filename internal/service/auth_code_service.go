package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

const (
	// authCodeUpperBound is exclusive.
	authCodeUpperBound = 999999
	authCodeAttempts   = 5
	// DefaultAuthCodeTTL is the validity window of a new code.
	DefaultAuthCodeTTL = 1800 * time.Second
)

type authCodeRepository interface {
	Reserve(ctx context.Context, code int, userID string, ttl time.Duration) (bool, error)
	Consume(ctx context.Context, code int) (string, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AuthCodeService issues and redeems one-time bulk download codes.
type AuthCodeService struct {
	codes  authCodeRepository
	users  userReader
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	random func() (int, error)
}

// NewAuthCodeService constructs an AuthCodeService.
func NewAuthCodeService(codes authCodeRepository, users userReader, ttl time.Duration, logger *zap.Logger) *AuthCodeService {
	if ttl <= 0 {
		ttl = DefaultAuthCodeTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthCodeService{
		codes:  codes,
		users:  users,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		random: randomAuthCode,
	}
}

func randomAuthCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(authCodeUpperBound))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// Create issues a new code for the user, revoking any code they held.
func (s *AuthCodeService) Create(ctx context.Context, userID string) (*models.AuthCode, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.ErrUnauthorized
	}
	for attempt := 0; attempt < authCodeAttempts; attempt++ {
		code, err := s.random()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generate auth code")
		}
		ok, err := s.codes.Reserve(ctx, code, userID, s.ttl)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Debug("auth code collision", zap.Int("attempt", attempt+1))
			continue
		}
		return &models.AuthCode{
			Code:      code,
			UserID:    userID,
			TTL:       int(s.ttl / time.Second),
			ExpiresAt: s.now().Add(s.ttl),
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "could not allocate a unique auth code")
}

// Verify redeems a code and returns its owner. The code is spent whether or
// not the owner still exists. An absent, malformed, expired or spent code
// yields ErrInvalidAuthCode.
func (s *AuthCodeService) Verify(ctx context.Context, raw string) (*models.User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, appErrors.ErrAuthCodeRequired
	}
	code, err := strconv.Atoi(raw)
	if err != nil || code < 0 || code >= authCodeUpperBound {
		return nil, appErrors.ErrInvalidAuthCode
	}
	userID, err := s.codes.Consume(ctx, code)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.ErrInvalidAuthCode
		}
		return nil, err
	}
	return user, nil
}
