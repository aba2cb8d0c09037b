package impl

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func newTestVerificationService(store *memStore, now time.Time) *verificationService {
	return &verificationService{
		codeRepo: store.VerificationCodeRepo(),
		ttl:      5 * time.Minute,
		random:   bytes.NewReader(bytes.Repeat([]byte{0}, 64)),
		now:      func() time.Time { return now },
		logger:   newDiscardLogger(),
	}
}

func TestVerificationService_Generate_Format(t *testing.T) {
	srv := newTestVerificationService(newMemStore(), time.Now())

	// An all-zero reader draws 0, which must still be six characters.
	code, err := srv.Generate()
	require.NoError(t, err)
	assert.Equal(t, "000000", code)

	srv.random = cryptoReader()
	for i := 0; i < 50; i++ {
		code, err := srv.Generate()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestVerificationService_IssueReplacesOutstandingCode(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := newTestVerificationService(store, now)
	srv.random = cryptoReader()
	ctx := context.Background()

	first, err := srv.Issue(ctx, "user@example.com", entity.VerificationCodeLogin)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), first.ExpiresAt)

	second, err := srv.Issue(ctx, "user@example.com", entity.VerificationCodeLogin)
	require.NoError(t, err)

	_, err = srv.Validate(ctx, "user@example.com", second.Code, entity.VerificationCodeLogin)
	assert.NoError(t, err)

	if first.Code != second.Code {
		_, err = srv.Validate(ctx, "user@example.com", first.Code, entity.VerificationCodeLogin)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidOTP)
	}
}

func TestVerificationService_Validate(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	srv := newTestVerificationService(store, now)
	ctx := context.Background()

	store.putCode(&entity.VerificationCode{
		Email: "user@example.com", Code: "111111", Type: entity.VerificationCodeLogin, ExpiresAt: now.Add(time.Minute),
	})
	store.putCode(&entity.VerificationCode{
		Email: "user@example.com", Code: "222222", Type: entity.VerificationCodeRegister, ExpiresAt: now.Add(-time.Minute),
	})

	code, err := srv.Validate(ctx, "user@example.com", "111111", entity.VerificationCodeLogin)
	require.NoError(t, err)
	assert.Equal(t, "111111", code.Code)

	_, err = srv.Validate(ctx, "user@example.com", "111111", entity.VerificationCodeForgotPassword)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOTP)

	_, err = srv.Validate(ctx, "user@example.com", "999999", entity.VerificationCodeLogin)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOTP)

	_, err = srv.Validate(ctx, "user@example.com", "222222", entity.VerificationCodeRegister)
	assert.ErrorIs(t, err, domainerrors.ErrOTPExpired)

	// Validation alone never consumes.
	_, err = srv.Validate(ctx, "user@example.com", "111111", entity.VerificationCodeLogin)
	assert.NoError(t, err)
}
