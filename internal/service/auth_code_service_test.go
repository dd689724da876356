package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scportal/search-api/internal/models"
	appErrors "github.com/scportal/search-api/pkg/errors"
)

func newAuthCodeFixture() (*AuthCodeService, *memoryAuthCodes) {
	codes := &memoryAuthCodes{}
	users := &fakeUserReader{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "owner@example.com"},
	}}
	return NewAuthCodeService(codes, users, 0, zap.NewNop()), codes
}

func TestAuthCodeIsSingleUse(t *testing.T) {
	svc, _ := newAuthCodeFixture()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	code, err := svc.Create(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1800, code.TTL)
	assert.Equal(t, fixed.Add(30*time.Minute), code.ExpiresAt)
	assert.GreaterOrEqual(t, code.Code, 0)
	assert.Less(t, code.Code, authCodeUpperBound)

	raw := strconv.Itoa(code.Code)
	user, err := svc.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = svc.Verify(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidAuthCode))
}

func TestAuthCodeRetriesOnCollision(t *testing.T) {
	svc, codes := newAuthCodeFixture()
	codes.codes = map[int]string{42: "other"}
	sequence := []int{42, 42, 7}
	svc.random = func() (int, error) {
		next := sequence[0]
		sequence = sequence[1:]
		return next, nil
	}

	code, err := svc.Create(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, code.Code)
	assert.Equal(t, "other", codes.codes[42])
}

func TestAuthCodeGivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, codes := newAuthCodeFixture()
	codes.codes = map[int]string{42: "other"}
	svc.random = func() (int, error) { return 42, nil }

	_, err := svc.Create(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestAuthCodeCreateRequiresUser(t *testing.T) {
	svc, _ := newAuthCodeFixture()
	_, err := svc.Create(context.Background(), " ")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthCodeVerifyRejectsBadInput(t *testing.T) {
	svc, _ := newAuthCodeFixture()

	_, err := svc.Verify(context.Background(), "")
	assert.True(t, appErrors.Is(err, appErrors.ErrAuthCodeRequired))

	for _, raw := range []string{"abc", "-1", "999999", "12.5"} {
		_, err = svc.Verify(context.Background(), raw)
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidAuthCode), raw)
	}

	_, err = svc.Verify(context.Background(), "123")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidAuthCode))
}

func TestAuthCodeForDeletedUserIsInvalid(t *testing.T) {
	svc, codes := newAuthCodeFixture()
	codes.codes = map[int]string{55: "gone"}

	_, err := svc.Verify(context.Background(), "55")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidAuthCode))
	assert.NotContains(t, codes.codes, 55)
}
