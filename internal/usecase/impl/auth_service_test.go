package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/infra/auth"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassword = "Password123!"
	testTOTPCode = "424242"
)

// authServiceFixtures holds all test dependencies for auth service tests.
type authServiceFixtures struct {
	service      usecase.AuthUsecase
	store        *memStore
	hasher       service.PasswordHasher
	tokenService service.TokenService
	publisher    *recordingPublisher
	limiter      *stubLimiter
	google       *stubGoogleOAuth
	clientRole   *entity.Role
}

func createTestAuthService(t *testing.T, opts ...func(params *AuthServiceParams)) authServiceFixtures {
	t.Helper()

	cfg := &config.Config{}
	cfg.SecretKey.Access = "access-secret"
	cfg.SecretKey.Refresh = "refresh-secret"
	cfg.Token = &config.TokenConfig{AccessTTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour}
	cfg.OTP = &config.OTPConfig{TTL: 5 * time.Minute}

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	store := newMemStore()
	clientRole := store.seedRole(entity.RoleClient)
	store.seedRole(entity.RoleAdmin)

	logger := newDiscardLogger()
	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	publisher := &recordingPublisher{}
	limiter := &stubLimiter{allowed: true}
	google := &stubGoogleOAuth{}

	params := AuthServiceParams{
		TxManager:        store,
		UserRepo:         store.UserRepo(),
		Hasher:           hasher,
		TokenService:     tokenService,
		TwoFactorService: &stubTwoFactor{validCode: testTOTPCode},
		QRCodeService:    stubQRCode{},
		Verification: NewVerificationService(VerificationServiceParams{
			CodeRepo: store.VerificationCodeRepo(),
			Config:   cfg,
			Logger:   logger,
		}),
		Roles:       NewRoleService(RoleServiceParams{RoleRepo: store.RoleRepo(), Logger: logger}),
		OTPLimiter:  limiter,
		Publisher:   publisher,
		GoogleOAuth: google,
		StateCodec:  plainStateCodec{},
		Logger:      logger,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc := NewAuthService(params)

	return authServiceFixtures{
		service:      svc,
		store:        store,
		hasher:       hasher,
		tokenService: tokenService,
		publisher:    publisher,
		limiter:      limiter,
		google:       google,
		clientRole:   clientRole,
	}
}

func (f authServiceFixtures) seedUser(t *testing.T, email string) *entity.User {
	t.Helper()

	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)

	return f.store.seedUser(email, hash, f.clientRole)
}

func (f authServiceFixtures) putCode(email, code string, codeType entity.VerificationCodeType) {
	f.store.putCode(&entity.VerificationCode{
		Email:     email,
		Code:      code,
		Type:      codeType,
		ExpiresAt: time.Now().Add(time.Minute),
	})
}

func enableTOTP(f authServiceFixtures, user *entity.User) {
	_ = f.store.UserRepo().SetTOTPSecret(context.Background(), user.ID, "JBSWY3DPEHPK3PXP")
}

var testClient = service.ClientInfo{UserAgent: "test-agent", IP: "10.0.0.1"}

func TestAuthService_Register_Success(t *testing.T) {
	f := createTestAuthService(t)
	ctx := context.Background()
	f.putCode("new@example.com", "123456", entity.VerificationCodeRegister)

	output, err := f.service.Register(ctx, &usecase.RegisterInput{
		Email:    "  New@Example.com ",
		Name:     "New User",
		Password: testPassword,
		Code:     "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", output.Email)
	assert.Equal(t, f.clientRole.ID, output.RoleID)
	assert.Equal(t, entity.UserStatusActive, output.Status)

	stored := f.store.user(output.ID)
	assert.True(t, f.hasher.Check(testPassword, stored.PasswordHash))
}

func TestAuthService_Register_CodeIsSingleUse(t *testing.T) {
	f := createTestAuthService(t)
	ctx := context.Background()
	f.putCode("new@example.com", "123456", entity.VerificationCodeRegister)

	input := &usecase.RegisterInput{Email: "new@example.com", Name: "New", Password: testPassword, Code: "123456"}
	_, err := f.service.Register(ctx, input)
	require.NoError(t, err)

	_, err = f.service.Register(ctx, input)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOTP)
}

func TestAuthService_Register_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f authServiceFixtures)
		code    string
		wantErr error
	}{
		{
			name:    "no code issued",
			setup:   func(f authServiceFixtures) {},
			code:    "123456",
			wantErr: domainerrors.ErrInvalidOTP,
		},
		{
			name: "code issued for another intent",
			setup: func(f authServiceFixtures) {
				f.putCode("new@example.com", "123456", entity.VerificationCodeLogin)
			},
			code:    "123456",
			wantErr: domainerrors.ErrInvalidOTP,
		},
		{
			name: "expired code",
			setup: func(f authServiceFixtures) {
				f.store.putCode(&entity.VerificationCode{
					Email:     "new@example.com",
					Code:      "123456",
					Type:      entity.VerificationCodeRegister,
					ExpiresAt: time.Now().Add(-time.Second),
				})
			},
			code:    "123456",
			wantErr: domainerrors.ErrOTPExpired,
		},
		{
			name: "email taken",
			setup: func(f authServiceFixtures) {
				f.store.seedUser("new@example.com", "hash", f.clientRole)
				f.putCode("new@example.com", "123456", entity.VerificationCodeRegister)
			},
			code:    "123456",
			wantErr: domainerrors.ErrEmailAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestAuthService(t)
			tt.setup(f)

			_, err := f.service.Register(context.Background(), &usecase.RegisterInput{
				Email:    "new@example.com",
				Name:     "New",
				Password: testPassword,
				Code:     tt.code,
			})

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthService_Register_TakenEmailKeepsCode(t *testing.T) {
	f := createTestAuthService(t)
	f.store.seedUser("new@example.com", "hash", f.clientRole)
	f.putCode("new@example.com", "123456", entity.VerificationCodeRegister)

	_, err := f.service.Register(context.Background(), &usecase.RegisterInput{
		Email: "new@example.com", Name: "New", Password: testPassword, Code: "123456",
	})
	require.ErrorIs(t, err, domainerrors.ErrEmailAlreadyExists)

	_, err = f.store.VerificationCodeRepo().Find(context.Background(), "new@example.com", "123456", entity.VerificationCodeRegister)
	assert.NoError(t, err)
}

func TestAuthService_SendOTP(t *testing.T) {
	tests := []struct {
		name     string
		existing bool
		codeType entity.VerificationCodeType
		limiter  stubLimiter
		wantErr  error
	}{
		{name: "register for new email", codeType: entity.VerificationCodeRegister, limiter: stubLimiter{allowed: true}},
		{name: "register for taken email", existing: true, codeType: entity.VerificationCodeRegister, limiter: stubLimiter{allowed: true}, wantErr: domainerrors.ErrEmailAlreadyExists},
		{name: "login for unknown email", codeType: entity.VerificationCodeLogin, limiter: stubLimiter{allowed: true}, wantErr: domainerrors.ErrEmailNotFound},
		{name: "forgot password for known email", existing: true, codeType: entity.VerificationCodeForgotPassword, limiter: stubLimiter{allowed: true}},
		{name: "invalid type", codeType: "PAYMENT", limiter: stubLimiter{allowed: true}, wantErr: domainerrors.ErrValidationFailed},
		{name: "throttled", existing: true, codeType: entity.VerificationCodeLogin, limiter: stubLimiter{allowed: false}, wantErr: domainerrors.ErrTooManyOTPRequests},
		{name: "limiter down fails open", existing: true, codeType: entity.VerificationCodeLogin, limiter: stubLimiter{err: errors.New("redis down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestAuthService(t)
			*f.limiter = tt.limiter
			if tt.existing {
				f.seedUser(t, "user@example.com")
			}

			err := f.service.SendOTP(context.Background(), &usecase.SendOTPInput{Email: "User@example.com", Type: tt.codeType})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.publisher.events)

				return
			}

			require.NoError(t, err)
			require.Len(t, f.publisher.events, 1)
			event := f.publisher.events[0]
			assert.Equal(t, "user@example.com", event.Email)
			assert.Equal(t, string(tt.codeType), event.Type)
			assert.Len(t, event.Code, 6)

			_, err = f.store.VerificationCodeRepo().Find(context.Background(), "user@example.com", event.Code, tt.codeType)
			assert.NoError(t, err)
		})
	}
}

func TestAuthService_SendOTP_PublishFailure(t *testing.T) {
	f := createTestAuthService(t)
	f.publisher.err = errors.New("topic unavailable")

	err := f.service.SendOTP(context.Background(), &usecase.SendOTPInput{Email: "new@example.com", Type: entity.VerificationCodeRegister})

	assert.ErrorIs(t, err, domainerrors.ErrFailedToSendOTP)
}

func TestAuthService_Login_IssuesOneDeviceAndOneToken(t *testing.T) {
	f := createTestAuthService(t)
	user := f.seedUser(t, "user@example.com")

	tokens, err := f.service.Login(context.Background(), &usecase.LoginInput{
		Email:    "user@example.com",
		Password: testPassword,
		Client:   testClient,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, f.store.deviceCount())
	assert.Equal(t, 1, f.store.tokenCount())

	access, err := f.tokenService.VerifyAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, access.UserID)
	assert.Equal(t, f.clientRole.ID, access.RoleID)
	assert.Equal(t, entity.RoleClient, access.RoleName)

	device, err := f.store.DeviceRepo().FindByID(context.Background(), access.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, testClient.IP, device.IP)
	assert.Equal(t, testClient.UserAgent, device.UserAgent)
	assert.True(t, device.IsActive)

	stored, err := f.store.RefreshTokenRepo().FindByTokenHash(context.Background(), hashToken(tokens.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, access.DeviceID, stored.DeviceID)
}

func TestAuthService_Login_Failures(t *testing.T) {
	f := createTestAuthService(t)
	f.seedUser(t, "user@example.com")

	_, err := f.service.Login(context.Background(), &usecase.LoginInput{Email: "nobody@example.com", Password: testPassword})
	assert.ErrorIs(t, err, domainerrors.ErrEmailNotFound)

	_, err = f.service.Login(context.Background(), &usecase.LoginInput{Email: "user@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidPassword)

	assert.Zero(t, f.store.deviceCount())
}

func TestAuthService_Login_TwoFactor(t *testing.T) {
	tests := []struct {
		name     string
		totpCode string
		code     string
		wantErr  error
	}{
		{name: "missing second factor", wantErr: domainerrors.ErrTOTPOrCodeRequired},
		{name: "wrong totp", totpCode: "000000", wantErr: domainerrors.ErrInvalidTOTP},
		{name: "correct totp", totpCode: testTOTPCode},
		{name: "wrong email code", code: "999999", wantErr: domainerrors.ErrInvalidOTP},
		{name: "correct email code", code: "123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestAuthService(t)
			user := f.seedUser(t, "user@example.com")
			enableTOTP(f, user)
			f.putCode("user@example.com", "123456", entity.VerificationCodeLogin)

			tokens, err := f.service.Login(context.Background(), &usecase.LoginInput{
				Email:    "user@example.com",
				Password: testPassword,
				TOTPCode: tt.totpCode,
				Code:     tt.code,
				Client:   testClient,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, f.store.tokenCount())

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, tokens.AccessToken)
		})
	}
}

func TestAuthService_Login_ConsumesEmailCode(t *testing.T) {
	f := createTestAuthService(t)
	f.seedUser(t, "user@example.com")
	f.putCode("user@example.com", "123456", entity.VerificationCodeLogin)

	input := &usecase.LoginInput{Email: "user@example.com", Password: testPassword, Code: "123456", Client: testClient}

	_, err := f.service.Login(context.Background(), input)
	require.NoError(t, err)

	_, err = f.service.Login(context.Background(), input)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOTP)
	assert.Equal(t, 1, f.store.deviceCount())
}

func TestAuthService_RefreshToken_Rotates(t *testing.T) {
	f := createTestAuthService(t)
	f.seedUser(t, "user@example.com")
	ctx := context.Background()

	first, err := f.service.Login(ctx, &usecase.LoginInput{Email: "user@example.com", Password: testPassword, Client: testClient})
	require.NoError(t, err)

	newClient := service.ClientInfo{UserAgent: "other-agent", IP: "10.0.0.2"}
	second, err := f.service.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: first.RefreshToken, Client: newClient})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, f.store.tokenCount())
	assert.Equal(t, 1, f.store.deviceCount())

	firstAccess, err := f.tokenService.VerifyAccessToken(first.AccessToken)
	require.NoError(t, err)
	secondAccess, err := f.tokenService.VerifyAccessToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, firstAccess.DeviceID, secondAccess.DeviceID)

	device, err := f.store.DeviceRepo().FindByID(ctx, secondAccess.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, newClient.IP, device.IP)
	assert.Equal(t, newClient.UserAgent, device.UserAgent)

	_, err = f.service.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenAlreadyUsed)
}

func TestAuthService_RefreshToken_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	f := createTestAuthService(t)
	f.seedUser(t, "user@example.com")
	ctx := context.Background()

	tokens, err := f.service.Login(ctx, &usecase.LoginInput{Email: "user@example.com", Password: testPassword, Client: testClient})
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		reused    int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := f.service.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: tokens.RefreshToken, Client: testClient})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainerrors.ErrRefreshTokenAlreadyUsed):
				reused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, reused)
	assert.Equal(t, 1, f.store.tokenCount())
}

func TestAuthService_RefreshToken_RejectsForgedOrAccessTokens(t *testing.T) {
	f := createTestAuthService(t)
	f.seedUser(t, "user@example.com")

	tokens, err := f.service.Login(context.Background(), &usecase.LoginInput{Email: "user@example.com", Password: testPassword, Client: testClient})
	require.NoError(t, err)

	_, err = f.service.RefreshToken(context.Background(), &usecase.RefreshTokenInput{RefreshToken: "not-a-jwt"})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorizedAccess)

	_, err = f.service.RefreshToken(context.Background(), &usecase.RefreshTokenInput{RefreshToken: tokens.AccessToken})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorizedAccess)
}

func TestAuthService_Logout(t *testing.T) {
	f := createTestAuthService(t)
	f.seedUser(t, "user@example.com")
	ctx := context.Background()

	tokens, err := f.service.Login(ctx, &usecase.LoginInput{Email: "user@example.com", Password: testPassword, Client: testClient})
	require.NoError(t, err)
	access, err := f.tokenService.VerifyAccessToken(tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, &usecase.LogoutInput{RefreshToken: tokens.RefreshToken}))

	assert.Zero(t, f.store.tokenCount())
	device, err := f.store.DeviceRepo().FindByID(ctx, access.DeviceID)
	require.NoError(t, err)
	assert.False(t, device.IsActive)

	err = f.service.Logout(ctx, &usecase.LogoutInput{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenAlreadyUsed)

	_, err = f.service.RefreshToken(ctx, &usecase.RefreshTokenInput{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenAlreadyUsed)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	f := createTestAuthService(t)
	user := f.seedUser(t, "user@example.com")
	f.putCode("user@example.com", "123456", entity.VerificationCodeForgotPassword)
	ctx := context.Background()

	input := &usecase.ForgotPasswordInput{Email: "user@example.com", Code: "123456", NewPassword: "NewPassword456!"}
	require.NoError(t, f.service.ForgotPassword(ctx, input))

	stored := f.store.user(user.ID)
	assert.True(t, f.hasher.Check("NewPassword456!", stored.PasswordHash))

	err := f.service.ForgotPassword(ctx, input)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOTP)

	err = f.service.ForgotPassword(ctx, &usecase.ForgotPasswordInput{Email: "nobody@example.com", Code: "123456", NewPassword: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrEmailNotFound)
}

func TestAuthService_Setup2FA(t *testing.T) {
	f := createTestAuthService(t)
	user := f.seedUser(t, "user@example.com")
	ctx := context.Background()

	output, err := f.service.Setup2FA(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", output.Secret)
	assert.True(t, strings.HasPrefix(output.QRCode, "data:image/png;base64,"))
	assert.Contains(t, output.URI, "otpauth://totp/")

	stored := f.store.user(user.ID)
	assert.True(t, stored.TwoFactorEnabled())

	_, err = f.service.Setup2FA(ctx, user.ID)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyEnabled2FA)

	_, err = f.service.Setup2FA(ctx, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

// staleUserRepo serves users as they were before 2FA was bound, the view a request has
// when a concurrent setup commits between its read and its write.
type staleUserRepo struct {
	repository.UserRepository
}

func (r staleUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := r.UserRepository.FindByID(ctx, id)
	if user != nil {
		user.TOTPSecret = nil
	}

	return user, err
}

func TestAuthService_Setup2FA_ConcurrentSetupKeepsFirstSecret(t *testing.T) {
	f := createTestAuthService(t, func(params *AuthServiceParams) {
		params.UserRepo = staleUserRepo{UserRepository: params.UserRepo}
	})
	user := f.seedUser(t, "user@example.com")
	ctx := context.Background()
	require.NoError(t, f.store.UserRepo().SetTOTPSecret(ctx, user.ID, "SCANNEDSECRET234"))

	_, err := f.service.Setup2FA(ctx, user.ID)

	assert.ErrorIs(t, err, domainerrors.ErrAlreadyEnabled2FA)
	stored := f.store.user(user.ID)
	require.NotNil(t, stored.TOTPSecret)
	assert.Equal(t, "SCANNEDSECRET234", *stored.TOTPSecret)
}

func TestAuthService_Setup2FA_ConcurrentSetupsSucceedOnce(t *testing.T) {
	f := createTestAuthService(t)
	user := f.seedUser(t, "user@example.com")

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := f.service.Setup2FA(context.Background(), user.ID)
			if err != nil {
				assert.ErrorIs(t, err, domainerrors.ErrAlreadyEnabled2FA)

				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestAuthService_Disable2FA(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		totpCode  string
		code      string
		wantErr   error
		wantClear bool
	}{
		{name: "not enabled", totpCode: testTOTPCode, wantErr: domainerrors.ErrNotEnabled2FA},
		{name: "both proofs", enabled: true, totpCode: testTOTPCode, code: "123456", wantErr: domainerrors.ErrInvalidTOTPAndCode},
		{name: "no proof", enabled: true, wantErr: domainerrors.ErrInvalidTOTPAndCode},
		{name: "wrong totp", enabled: true, totpCode: "000000", wantErr: domainerrors.ErrInvalidTOTP},
		{name: "wrong email code", enabled: true, code: "999999", wantErr: domainerrors.ErrInvalidOTP},
		{name: "totp", enabled: true, totpCode: testTOTPCode, wantClear: true},
		{name: "email code", enabled: true, code: "123456", wantClear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestAuthService(t)
			user := f.seedUser(t, "user@example.com")
			if tt.enabled {
				enableTOTP(f, user)
			}
			f.putCode("user@example.com", "123456", entity.VerificationCodeDisable2FA)

			err := f.service.Disable2FA(context.Background(), &usecase.Disable2FAInput{
				UserID:   user.ID,
				TOTPCode: tt.totpCode,
				Code:     tt.code,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			stored := f.store.user(user.ID)
			assert.Equal(t, tt.enabled && !tt.wantClear, stored.TwoFactorEnabled())
		})
	}
}

func TestAuthService_GoogleAuthorizationURL(t *testing.T) {
	f := createTestAuthService(t)

	link, err := f.service.GoogleAuthorizationURL(context.Background(), testClient)
	require.NoError(t, err)
	require.NotEmpty(t, link.Nonce)
	assert.Contains(t, link.URL, "state=test-agent|10.0.0.1|"+link.Nonce)

	other, err := f.service.GoogleAuthorizationURL(context.Background(), testClient)
	require.NoError(t, err)
	assert.NotEqual(t, link.Nonce, other.Nonce)
}

func TestAuthService_GoogleCallback_CreatesClientOnFirstLogin(t *testing.T) {
	f := createTestAuthService(t)
	f.google.profile = &service.GoogleProfile{Email: "G@Example.com", Name: "Google User", Picture: "https://example.com/a.png"}
	ctx := context.Background()

	tokens, err := f.service.GoogleCallback(ctx, &usecase.GoogleCallbackInput{Code: "auth-code", State: "test-agent|10.0.0.1|n1", Nonce: "n1"})
	require.NoError(t, err)

	access, err := f.tokenService.VerifyAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleClient, access.RoleName)

	user, err := f.store.UserRepo().FindByEmail(ctx, "g@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Google User", user.Name)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, "https://example.com/a.png", *user.Avatar)

	device, err := f.store.DeviceRepo().FindByID(ctx, access.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", device.UserAgent)
	assert.Equal(t, "10.0.0.1", device.IP)

	_, err = f.service.GoogleCallback(ctx, &usecase.GoogleCallbackInput{Code: "auth-code", State: "test-agent|10.0.0.1|n2", Nonce: "n2"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.deviceCount())
}

func TestAuthService_GoogleCallback_Failures(t *testing.T) {
	f := createTestAuthService(t)
	ctx := context.Background()

	_, err := f.service.GoogleCallback(ctx, &usecase.GoogleCallbackInput{Code: "auth-code", State: "tampered", Nonce: "n"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidOAuthState)

	f.google.err = errors.New("exchange failed")
	_, err = f.service.GoogleCallback(ctx, &usecase.GoogleCallbackInput{Code: "auth-code", State: "a|b|n", Nonce: "n"})
	assert.ErrorIs(t, err, domainerrors.ErrGoogleUserInfo)

	f.google.err = nil
	f.google.profile = &service.GoogleProfile{Name: "No Email"}
	_, err = f.service.GoogleCallback(ctx, &usecase.GoogleCallbackInput{Code: "auth-code", State: "a|b|n", Nonce: "n"})
	assert.ErrorIs(t, err, domainerrors.ErrGoogleUserInfo)
}

func TestAuthService_GoogleCallback_StateMustBelongToTheBrowser(t *testing.T) {
	f := createTestAuthService(t)
	f.google.profile = &service.GoogleProfile{Email: "user@example.com"}
	ctx := context.Background()

	// The state was minted for a browser that holds link.Nonce.
	link, err := f.service.GoogleAuthorizationURL(ctx, testClient)
	require.NoError(t, err)
	mintedState := link.URL[strings.Index(link.URL, "state=")+len("state="):]

	for name, nonce := range map[string]string{"no nonce": "", "other nonce": uuid.NewString()} {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.GoogleCallback(ctx, &usecase.GoogleCallbackInput{Code: "auth-code", State: mintedState, Nonce: nonce})

			assert.ErrorIs(t, err, domainerrors.ErrInvalidOAuthState)
		})
	}

	assert.Zero(t, f.store.deviceCount())

	_, err = f.service.GoogleCallback(ctx, &usecase.GoogleCallbackInput{Code: "auth-code", State: mintedState, Nonce: link.Nonce})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.deviceCount())
}
