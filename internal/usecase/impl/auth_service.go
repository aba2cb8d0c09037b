package impl

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const pngDataURIPrefix = "data:image/png;base64,"

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	twoFactorService service.TwoFactorService
	qrCodeService    service.QRCodeService
	verification     usecase.VerificationUsecase
	roles            usecase.RoleUsecase
	otpLimiter       service.OTPSendLimiter
	publisher        service.EventPublisher
	googleOAuth      service.GoogleOAuthService
	stateCodec       service.OAuthStateCodec
	now              func() time.Time
	logger           *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	TwoFactorService service.TwoFactorService
	QRCodeService    service.QRCodeService
	Verification     usecase.VerificationUsecase
	Roles            usecase.RoleUsecase
	OTPLimiter       service.OTPSendLimiter
	Publisher        service.EventPublisher
	GoogleOAuth      service.GoogleOAuthService
	StateCodec       service.OAuthStateCodec
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:        params.TxManager,
		userRepo:         params.UserRepo,
		hasher:           params.Hasher,
		tokenService:     params.TokenService,
		twoFactorService: params.TwoFactorService,
		qrCodeService:    params.QRCodeService,
		verification:     params.Verification,
		roles:            params.Roles,
		otpLimiter:       params.OTPLimiter,
		publisher:        params.Publisher,
		googleOAuth:      params.GoogleOAuth,
		stateCodec:       params.StateCodec,
		now:              time.Now,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a client account once the REGISTER code checks out. The email uniqueness
// check is left to the insert so two concurrent sign-ups cannot both pass.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.UserOutput, error) {
	email := normalizeEmail(input.Email)

	if _, err := srv.verification.Validate(ctx, email, input.Code, entity.VerificationCodeRegister); err != nil {
		return nil, err
	}

	roleID, err := srv.roles.ClientRoleID(ctx)
	if err != nil {
		return nil, err
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	user := &entity.User{
		Email:        email,
		Name:         input.Name,
		PasswordHash: passwordHash,
		PhoneNumber:  input.PhoneNumber,
		Status:       entity.UserStatusActive,
		RoleID:       roleID,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.UserRepo().Create(ctx, user); err != nil {
			if repository.OutcomeOf(err) == repository.OutcomeConflict {
				return domainerrors.ErrEmailAlreadyExists
			}

			return errors.Wrap(err, "failed to create user")
		}

		return consumeCode(ctx, repoFactory, email, input.Code, entity.VerificationCodeRegister)
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", email), slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Info("User registered", slog.String("userID", user.ID.String()))

	return usecase.NewUserOutput(user), nil
}

// SendOTP issues a code and queues it for mail delivery. REGISTER codes go to unknown emails,
// every other intent to known ones.
func (srv *authService) SendOTP(ctx context.Context, input *usecase.SendOTPInput) error {
	email := normalizeEmail(input.Email)

	if !input.Type.IsValid() {
		return domainerrors.NewValidationError([]domainerrors.FieldViolation{{Path: "type", Message: "oneof"}})
	}

	_, err := srv.userRepo.FindByEmail(ctx, email)
	switch outcome := repository.OutcomeOf(err); {
	case err == nil && input.Type == entity.VerificationCodeRegister:
		return domainerrors.ErrEmailAlreadyExists
	case outcome == repository.OutcomeNotFound && input.Type != entity.VerificationCodeRegister:
		return domainerrors.ErrEmailNotFound
	case err != nil && outcome != repository.OutcomeNotFound:
		return errors.Wrap(err, "failed to look up user")
	}

	allowed, err := srv.otpLimiter.Allow(ctx, email, input.Type)
	if err != nil {
		srv.log(ctx).Warn("OTP limiter unavailable, allowing send", slog.Any("error", err))
		allowed = true
	}
	if !allowed {
		return domainerrors.ErrTooManyOTPRequests
	}

	verificationCode, err := srv.verification.Issue(ctx, email, input.Type)
	if err != nil {
		return err
	}

	event := &service.OTPMailEvent{
		RequestID: deliverycontext.GetRequestIDFromContext(ctx),
		Email:     email,
		Code:      verificationCode.Code,
		Type:      string(input.Type),
		ExpiresAt: verificationCode.ExpiresAt.Unix(),
	}
	if err := srv.publisher.PublishOTPMail(ctx, event); err != nil {
		srv.log(ctx).Error("Failed to publish OTP mail", slog.String("email", email), slog.Any("error", err))

		return domainerrors.ErrFailedToSendOTP
	}

	return nil
}

// Login checks the password, then the second factor when the account has 2FA enabled.
// A LOGIN code, when used, is consumed in the same transaction that opens the session.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*entity.TokenPair, error) {
	email := normalizeEmail(input.Email)

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if repository.OutcomeOf(err) == repository.OutcomeNotFound {
		return nil, domainerrors.ErrEmailNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}

	// Check password outside transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed, password mismatch", slog.String("email", email))

		return nil, domainerrors.ErrInvalidPassword
	}

	useCode, err := srv.checkSecondFactor(ctx, user, input)
	if err != nil {
		srv.log(ctx).Warn("Login failed, second factor rejected", slog.String("email", email), slog.Any("error", err))

		return nil, err
	}

	var tokens *entity.TokenPair
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if useCode {
			if err := consumeCode(ctx, repoFactory, email, input.Code, entity.VerificationCodeLogin); err != nil {
				return err
			}
		}

		tokens, err = srv.openSession(ctx, repoFactory, user, input.Client)

		return err
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("User logged in", slog.String("userID", user.ID.String()))

	return tokens, nil
}

// checkSecondFactor reports whether a LOGIN code was validated and must be consumed.
func (srv *authService) checkSecondFactor(ctx context.Context, user *entity.User, input *usecase.LoginInput) (bool, error) {
	if user.TwoFactorEnabled() {
		switch {
		case input.TOTPCode != "":
			if !srv.twoFactorService.Verify(user.Email, *user.TOTPSecret, input.TOTPCode) {
				return false, domainerrors.ErrInvalidTOTP
			}

			return false, nil
		case input.Code != "":
		default:
			return false, domainerrors.ErrTOTPOrCodeRequired
		}
	} else if input.Code == "" {
		return false, nil
	}

	if _, err := srv.verification.Validate(ctx, user.Email, input.Code, entity.VerificationCodeLogin); err != nil {
		return false, err
	}

	return true, nil
}

// openSession creates a device for the client and issues its first token pair.
func (srv *authService) openSession(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	user *entity.User,
	client service.ClientInfo,
) (*entity.TokenPair, error) {
	device := &entity.Device{
		UserID:     user.ID,
		UserAgent:  client.UserAgent,
		IP:         client.IP,
		LastActive: srv.now(),
		IsActive:   true,
	}
	if err := repoFactory.DeviceRepo().Create(ctx, device); err != nil {
		return nil, errors.Wrap(err, "failed to create device")
	}

	return srv.generateTokens(ctx, repoFactory.RefreshTokenRepo(), user, device.ID)
}

// RefreshToken rotates a refresh token. Lookup, device touch, delete and reissue share one
// transaction; the delete is the single point where concurrent redemptions are decided.
func (srv *authService) RefreshToken(ctx context.Context, input *usecase.RefreshTokenInput) (*entity.TokenPair, error) {
	payload, err := srv.tokenService.VerifyRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, domainerrors.ErrUnauthorizedAccess
	}

	tokenHash := hashToken(input.RefreshToken)

	var tokens *entity.TokenPair
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		stored, err := refreshRepo.FindByTokenHash(ctx, tokenHash)
		if repository.OutcomeOf(err) == repository.OutcomeNotFound {
			return domainerrors.ErrRefreshTokenAlreadyUsed
		}
		if err != nil {
			return err
		}
		if stored.UserID != payload.UserID || stored.User == nil {
			return domainerrors.ErrUnauthorizedAccess
		}

		if err := repoFactory.DeviceRepo().Touch(ctx, stored.DeviceID, input.Client.IP, input.Client.UserAgent, srv.now()); err != nil {
			return err
		}

		if _, err := refreshRepo.DeleteByTokenHash(ctx, tokenHash); err != nil {
			if repository.OutcomeOf(err) == repository.OutcomeNotFound {
				return domainerrors.ErrRefreshTokenAlreadyUsed
			}

			return err
		}

		tokens, err = srv.generateTokens(ctx, refreshRepo, stored.User, stored.DeviceID)

		return err
	})
	if err != nil {
		return nil, srv.foldTokenError(ctx, "refresh", payload.UserID, err)
	}

	return tokens, nil
}

// Logout redeems the refresh token without reissuing and deactivates its device.
func (srv *authService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	payload, err := srv.tokenService.VerifyRefreshToken(input.RefreshToken)
	if err != nil {
		return domainerrors.ErrUnauthorizedAccess
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		deleted, err := repoFactory.RefreshTokenRepo().DeleteByTokenHash(ctx, hashToken(input.RefreshToken))
		if repository.OutcomeOf(err) == repository.OutcomeNotFound {
			return domainerrors.ErrRefreshTokenAlreadyUsed
		}
		if err != nil {
			return err
		}

		return repoFactory.DeviceRepo().Deactivate(ctx, deleted.DeviceID)
	})
	if err != nil {
		return srv.foldTokenError(ctx, "logout", payload.UserID, err)
	}

	return nil
}

// foldTokenError keeps domain errors and hides everything else behind UnauthorizedAccess.
func (srv *authService) foldTokenError(ctx context.Context, flow string, userID uuid.UUID, err error) error {
	if errors.Is(err, domainerrors.ErrRefreshTokenAlreadyUsed) {
		srv.log(ctx).Warn("Refresh token reuse detected",
			slog.String("flow", flow),
			slog.String("userID", userID.String()),
		)

		return domainerrors.ErrRefreshTokenAlreadyUsed
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	srv.log(ctx).Error("Token flow failed", slog.String("flow", flow), slog.Any("error", err))

	return domainerrors.ErrUnauthorizedAccess
}

func (srv *authService) ForgotPassword(ctx context.Context, input *usecase.ForgotPasswordInput) error {
	email := normalizeEmail(input.Email)

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if repository.OutcomeOf(err) == repository.OutcomeNotFound {
		return domainerrors.ErrEmailNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to load user")
	}

	if _, err := srv.verification.Validate(ctx, email, input.Code, entity.VerificationCodeForgotPassword); err != nil {
		return err
	}

	passwordHash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.UserRepo().UpdatePassword(ctx, user.ID, passwordHash); err != nil {
			return errors.Wrap(err, "failed to update password")
		}

		return consumeCode(ctx, repoFactory, email, input.Code, entity.VerificationCodeForgotPassword)
	})
	if err != nil {
		return err
	}

	srv.log(ctx).Info("Password reset", slog.String("userID", user.ID.String()))

	return nil
}

// Setup2FA binds a new authenticator secret. The secret is returned once and never again.
// The enabled check below is a fast path; the conditional write decides concurrent setups.
func (srv *authService) Setup2FA(ctx context.Context, userID uuid.UUID) (*usecase.Setup2FAOutput, error) {
	user, err := srv.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled() {
		return nil, domainerrors.ErrAlreadyEnabled2FA
	}

	secret, err := srv.twoFactorService.GenerateSecret(user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate TOTP secret")
	}

	png, err := srv.qrCodeService.GeneratePNG(secret.URI)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render TOTP QR code")
	}

	err = srv.userRepo.SetTOTPSecret(ctx, user.ID, secret.Secret)
	if repository.OutcomeOf(err) == repository.OutcomeConflict {
		return nil, domainerrors.ErrAlreadyEnabled2FA
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to store TOTP secret")
	}

	srv.log(ctx).Info("Two-factor authentication enabled", slog.String("userID", user.ID.String()))

	return &usecase.Setup2FAOutput{
		Secret: secret.Secret,
		URI:    secret.URI,
		QRCode: pngDataURIPrefix + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Disable2FA takes exactly one proof: a current TOTP code or a DISABLE_2FA email code.
func (srv *authService) Disable2FA(ctx context.Context, input *usecase.Disable2FAInput) error {
	user, err := srv.loadUser(ctx, input.UserID)
	if err != nil {
		return err
	}

	if !user.TwoFactorEnabled() {
		return domainerrors.ErrNotEnabled2FA
	}

	hasTOTP, hasCode := input.TOTPCode != "", input.Code != ""
	if hasTOTP == hasCode {
		return domainerrors.ErrInvalidTOTPAndCode
	}

	if hasTOTP {
		if !srv.twoFactorService.Verify(user.Email, *user.TOTPSecret, input.TOTPCode) {
			return domainerrors.ErrInvalidTOTP
		}
		if err := srv.userRepo.ClearTOTPSecret(ctx, user.ID); err != nil {
			return errors.Wrap(err, "failed to clear TOTP secret")
		}
	} else {
		if _, err := srv.verification.Validate(ctx, user.Email, input.Code, entity.VerificationCodeDisable2FA); err != nil {
			return err
		}

		err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
			if err := repoFactory.UserRepo().ClearTOTPSecret(ctx, user.ID); err != nil {
				return errors.Wrap(err, "failed to clear TOTP secret")
			}

			return consumeCode(ctx, repoFactory, user.Email, input.Code, entity.VerificationCodeDisable2FA)
		})
		if err != nil {
			return err
		}
	}

	srv.log(ctx).Info("Two-factor authentication disabled", slog.String("userID", user.ID.String()))

	return nil
}

func (srv *authService) GoogleAuthorizationURL(ctx context.Context, client service.ClientInfo) (*usecase.GoogleLinkOutput, error) {
	nonce := uuid.NewString()

	state, err := srv.stateCodec.Encode(client, nonce)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode OAuth state")
	}

	return &usecase.GoogleLinkOutput{
		URL:   srv.googleOAuth.AuthorizationURL(state),
		Nonce: nonce,
	}, nil
}

// GoogleCallback signs in the Google account's email, creating a client account on first use.
// The state must carry the nonce held by the calling browser, so a state obtained by someone
// else cannot complete a login here.
func (srv *authService) GoogleCallback(ctx context.Context, input *usecase.GoogleCallbackInput) (*entity.TokenPair, error) {
	state, err := srv.stateCodec.Decode(input.State)
	if err != nil {
		srv.log(ctx).Warn("Rejected OAuth state", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidOAuthState
	}
	if input.Nonce == "" || subtle.ConstantTimeCompare([]byte(state.Nonce), []byte(input.Nonce)) != 1 {
		srv.log(ctx).Warn("Rejected OAuth state, nonce not bound to this browser")

		return nil, domainerrors.ErrInvalidOAuthState
	}

	profile, err := srv.googleOAuth.FetchProfile(ctx, input.Code)
	if err != nil {
		srv.log(ctx).Warn("Failed to fetch Google profile", slog.Any("error", err))

		return nil, domainerrors.ErrGoogleUserInfo
	}
	if strings.TrimSpace(profile.Email) == "" {
		return nil, domainerrors.ErrGoogleUserInfo
	}

	user, err := srv.findOrCreateGoogleUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	client := service.ClientInfo{UserAgent: state.UserAgent, IP: state.IP}

	var tokens *entity.TokenPair
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokens, err = srv.openSession(ctx, repoFactory, user, client)

		return err
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("User logged in with Google", slog.String("userID", user.ID.String()))

	return tokens, nil
}

func (srv *authService) findOrCreateGoogleUser(ctx context.Context, profile *service.GoogleProfile) (*entity.User, error) {
	email := normalizeEmail(profile.Email)

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if repository.OutcomeOf(err) != repository.OutcomeNotFound {
		return nil, errors.Wrap(err, "failed to load user")
	}

	roleID, err := srv.roles.ClientRoleID(ctx)
	if err != nil {
		return nil, err
	}

	// The account can only be used through Google until the owner resets the password.
	passwordHash, err := srv.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash random password")
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	newUser := &entity.User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Status:       entity.UserStatusActive,
		RoleID:       roleID,
	}
	if profile.Picture != "" {
		picture := profile.Picture
		newUser.Avatar = &picture
	}

	err = srv.userRepo.Create(ctx, newUser)
	if repository.OutcomeOf(err) == repository.OutcomeConflict {
		// Lost a race with a concurrent callback for the same account.
		return srv.userRepo.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Google user")
	}

	srv.log(ctx).Info("User created from Google profile", slog.String("userID", newUser.ID.String()))

	// Reload to join the role used in the access token.
	return srv.userRepo.FindByID(ctx, newUser.ID)
}

func (srv *authService) loadUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if repository.OutcomeOf(err) == repository.OutcomeNotFound {
		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}

	return user, nil
}

// consumeCode deletes a validated code. A code already gone was used by a concurrent request.
func consumeCode(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	email, code string,
	codeType entity.VerificationCodeType,
) error {
	err := repoFactory.VerificationCodeRepo().Delete(ctx, email, code, codeType)
	if repository.OutcomeOf(err) == repository.OutcomeNotFound {
		return domainerrors.ErrInvalidOTP
	}

	return errors.Wrap(err, "failed to consume verification code")
}
