package impl

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"

	"github.com/google/uuid"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory stand-in for the Postgres repositories. Transactions are
// serialized and roll back by restoring a snapshot, which is enough to reproduce the
// row-lock ordering the database gives concurrent refreshes.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users       map[uuid.UUID]*entity.User
	roles       map[uuid.UUID]*entity.Role
	permissions map[uuid.UUID]*entity.Permission
	grants      map[uuid.UUID]map[uuid.UUID]bool
	devices     map[uuid.UUID]*entity.Device
	tokens      map[string]*entity.RefreshToken
	codes       map[string]*entity.VerificationCode
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uuid.UUID]*entity.User{},
		roles:       map[uuid.UUID]*entity.Role{},
		permissions: map[uuid.UUID]*entity.Permission{},
		grants:      map[uuid.UUID]map[uuid.UUID]bool{},
		devices:     map[uuid.UUID]*entity.Device{},
		tokens:      map[string]*entity.RefreshToken{},
		codes:       map[string]*entity.VerificationCode{},
	}
}

type memSnapshot struct {
	users       map[uuid.UUID]entity.User
	roles       map[uuid.UUID]*entity.Role
	permissions map[uuid.UUID]*entity.Permission
	grants      map[uuid.UUID]map[uuid.UUID]bool
	devices     map[uuid.UUID]entity.Device
	tokens      map[string]*entity.RefreshToken
	codes       map[string]*entity.VerificationCode
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		users:       make(map[uuid.UUID]entity.User, len(s.users)),
		roles:       maps.Clone(s.roles),
		permissions: maps.Clone(s.permissions),
		grants:      make(map[uuid.UUID]map[uuid.UUID]bool, len(s.grants)),
		devices:     make(map[uuid.UUID]entity.Device, len(s.devices)),
		tokens:      maps.Clone(s.tokens),
		codes:       maps.Clone(s.codes),
	}
	for id, user := range s.users {
		snap.users[id] = *user
	}
	for id, granted := range s.grants {
		snap.grants[id] = maps.Clone(granted)
	}
	for id, device := range s.devices {
		snap.devices[id] = *device
	}

	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[uuid.UUID]*entity.User, len(snap.users))
	for id, user := range snap.users {
		s.users[id] = &user
	}
	s.devices = make(map[uuid.UUID]*entity.Device, len(snap.devices))
	for id, device := range snap.devices {
		s.devices[id] = &device
	}
	s.roles = snap.roles
	s.permissions = snap.permissions
	s.grants = snap.grants
	s.tokens = snap.tokens
	s.codes = snap.codes
}

func (s *memStore) Execute(ctx context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)

		return err
	}

	return nil
}

func (s *memStore) UserRepo() repository.UserRepository             { return (*memUserRepo)(s) }
func (s *memStore) RoleRepo() repository.RoleRepository             { return (*memRoleRepo)(s) }
func (s *memStore) PermissionRepo() repository.PermissionRepository { return (*memPermissionRepo)(s) }
func (s *memStore) DeviceRepo() repository.DeviceRepository         { return (*memDeviceRepo)(s) }
func (s *memStore) RefreshTokenRepo() repository.RefreshTokenRepository {
	return (*memRefreshTokenRepo)(s)
}
func (s *memStore) VerificationCodeRepo() repository.VerificationCodeRepository {
	return (*memCodeRepo)(s)
}

// seedRole stores an active role and returns it.
func (s *memStore) seedRole(name string) *entity.Role {
	role := &entity.Role{Name: name, IsActive: true}
	_ = s.RoleRepo().Create(context.Background(), role)

	return role
}

// seedUser stores a user under the given role.
func (s *memStore) seedUser(email, passwordHash string, role *entity.Role) *entity.User {
	user := &entity.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: passwordHash,
		Status:       entity.UserStatusActive,
		RoleID:       role.ID,
	}
	_ = s.UserRepo().Create(context.Background(), user)

	return user
}

func (s *memStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens)
}

func (s *memStore) deviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.devices)
}

func (s *memStore) putCode(code *entity.VerificationCode) {
	_ = s.VerificationCodeRepo().Upsert(context.Background(), code)
}

func (s *memStore) user(id uuid.UUID) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.users[id]
}

func codeKey(email string, codeType entity.VerificationCodeType) string {
	return email + "|" + string(codeType)
}

// --- users ---

type memUserRepo memStore

func (r *memUserRepo) withRole(user *entity.User) *entity.User {
	out := *user
	if role, ok := r.roles[user.RoleID]; ok {
		roleCopy := *role
		out.Role = &roleCopy
	}

	return &out
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return r.withRole(user), nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return r.withRole(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	stored.Role = nil
	r.users[user.ID] = &stored

	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash

	return nil
}

func (r *memUserRepo) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || user.TOTPSecret != nil {
		return repository.ErrTOTPSecretAlreadySet
	}
	user.TOTPSecret = &secret

	return nil
}

func (r *memUserRepo) ClearTOTPSecret(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.TOTPSecret = nil

	return nil
}

// --- roles and permissions ---

type memRoleRepo memStore

func (r *memRoleRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[id]
	if !ok {
		return nil, repository.ErrRoleNotFound
	}
	out := *role

	return &out, nil
}

func (r *memRoleRepo) FindByName(ctx context.Context, name string) (*entity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, role := range r.roles {
		if role.Name == name {
			out := *role

			return &out, nil
		}
	}

	return nil, repository.ErrRoleNotFound
}

func (r *memRoleRepo) FindActiveWithPermission(
	ctx context.Context,
	roleID uuid.UUID,
	method entity.HTTPMethod,
	path string,
) (*entity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[roleID]
	if !ok || !role.IsActive || role.DeletedAt != nil {
		return nil, repository.ErrRoleNotFound
	}

	out := *role
	out.Permissions = nil
	for permissionID := range r.grants[roleID] {
		permission := r.permissions[permissionID]
		if permission.Matches(method, path) {
			out.Permissions = append(out.Permissions, permission)
		}
	}

	return &out, nil
}

func (r *memRoleRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.roles)), nil
}

func (r *memRoleRepo) Create(ctx context.Context, role *entity.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.roles {
		if existing.Name == role.Name {
			return repository.ErrRoleAlreadyExists
		}
	}

	role.ID = uuid.New()
	stored := *role
	r.roles[role.ID] = &stored

	return nil
}

func (r *memRoleRepo) GrantPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[roleID]; !ok {
		return repository.ErrRoleNotFound
	}

	granted := r.grants[roleID]
	if granted == nil {
		granted = map[uuid.UUID]bool{}
		r.grants[roleID] = granted
	}
	for _, id := range permissionIDs {
		if _, ok := r.permissions[id]; !ok {
			return repository.ErrPermissionNotFound
		}
		granted[id] = true
	}

	return nil
}

type memPermissionRepo memStore

func (r *memPermissionRepo) FindByRoute(ctx context.Context, method entity.HTTPMethod, path string) (*entity.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, permission := range r.permissions {
		if permission.Matches(method, path) {
			return permission, nil
		}
	}

	return nil, repository.ErrPermissionNotFound
}

func (r *memPermissionRepo) Create(ctx context.Context, permission *entity.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.permissions {
		if existing.Method == permission.Method && existing.Path == permission.Path {
			return repository.ErrPermissionAlreadyExists
		}
	}

	permission.ID = uuid.New()
	stored := *permission
	r.permissions[permission.ID] = &stored

	return nil
}

// --- devices ---

type memDeviceRepo memStore

func (r *memDeviceRepo) Create(ctx context.Context, device *entity.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device.ID = uuid.New()
	device.CreatedAt = time.Now()
	stored := *device
	r.devices[device.ID] = &stored

	return nil
}

func (r *memDeviceRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[id]
	if !ok {
		return nil, repository.ErrDeviceNotFound
	}
	out := *device

	return &out, nil
}

func (r *memDeviceRepo) Touch(ctx context.Context, id uuid.UUID, ip, userAgent string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[id]
	if !ok {
		return repository.ErrDeviceNotFound
	}
	device.IP = ip
	device.UserAgent = userAgent
	device.LastActive = at

	return nil
}

func (r *memDeviceRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[id]
	if !ok {
		return repository.ErrDeviceNotFound
	}
	device.IsActive = false

	return nil
}

func (r *memDeviceRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var devices []*entity.Device
	for _, device := range r.devices {
		if device.UserID == userID && device.IsActive {
			out := *device
			devices = append(devices, &out)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].LastActive.After(devices[j].LastActive) })

	return devices, nil
}

func (r *memDeviceRepo) DeactivateByUser(ctx context.Context, userID, keep uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, device := range r.devices {
		if device.UserID == userID && device.IsActive && id != keep {
			device.IsActive = false
			n++
		}
	}

	return n, nil
}

// --- refresh tokens ---

type memRefreshTokenRepo memStore

func (r *memRefreshTokenRepo) Create(ctx context.Context, token *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token.TokenHash]; ok {
		return repository.ErrRefreshTokenAlreadyExists
	}
	if _, ok := r.devices[token.DeviceID]; !ok {
		return repository.ErrDeviceNotFound
	}

	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	stored := *token
	r.tokens[token.TokenHash] = &stored

	return nil
}

func (r *memRefreshTokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}

	out := *token
	if user, ok := r.users[token.UserID]; ok {
		out.User = (*memUserRepo)(r).withRole(user)
	}

	return &out, nil
}

func (r *memRefreshTokenRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	delete(r.tokens, tokenHash)

	return token, nil
}

func (r *memRefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, token := range r.tokens {
		if token.ExpiresAt.Before(before) {
			delete(r.tokens, hash)
			n++
		}
	}

	return n, nil
}

func (r *memRefreshTokenRepo) DeleteByDevice(ctx context.Context, deviceID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, token := range r.tokens {
		if token.DeviceID == deviceID {
			delete(r.tokens, hash)
			n++
		}
	}

	return n, nil
}

func (r *memRefreshTokenRepo) DeleteByUser(ctx context.Context, userID, keepDeviceID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, token := range r.tokens {
		if token.UserID == userID && token.DeviceID != keepDeviceID {
			delete(r.tokens, hash)
			n++
		}
	}

	return n, nil
}

// --- verification codes ---

type memCodeRepo memStore

func (r *memCodeRepo) Upsert(ctx context.Context, code *entity.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	stored := *code
	r.codes[codeKey(code.Email, code.Type)] = &stored

	return nil
}

func (r *memCodeRepo) Find(ctx context.Context, email, code string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.codes[codeKey(email, codeType)]
	if !ok || stored.Code != code {
		return nil, repository.ErrVerificationCodeNotFound
	}
	out := *stored

	return &out, nil
}

func (r *memCodeRepo) Delete(ctx context.Context, email, code string, codeType entity.VerificationCodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := codeKey(email, codeType)
	stored, ok := r.codes[key]
	if !ok || stored.Code != code {
		return repository.ErrVerificationCodeNotFound
	}
	delete(r.codes, key)

	return nil
}

func (r *memCodeRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for key, code := range r.codes {
		if code.ExpiresAt.Before(before) {
			delete(r.codes, key)
			n++
		}
	}

	return n, nil
}

// --- service stubs ---

// stubTwoFactor accepts validCode for every secret.
type stubTwoFactor struct {
	validCode string
}

func (s *stubTwoFactor) GenerateSecret(email string) (*service.TOTPSecret, error) {
	return &service.TOTPSecret{
		Secret: "JBSWY3DPEHPK3PXP",
		URI:    "otpauth://totp/storefront:" + email + "?secret=JBSWY3DPEHPK3PXP",
	}, nil
}

func (s *stubTwoFactor) Verify(email, secret, code string) bool {
	return code == s.validCode
}

type stubQRCode struct{}

func (stubQRCode) GeneratePNG(content string) ([]byte, error) {
	return []byte("png:" + content), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*service.OTPMailEvent
	err    error
}

func (p *recordingPublisher) PublishOTPMail(ctx context.Context, event *service.OTPMailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type stubLimiter struct {
	allowed bool
	err     error
}

func (l *stubLimiter) Allow(ctx context.Context, email string, codeType entity.VerificationCodeType) (bool, error) {
	return l.allowed, l.err
}

type stubGoogleOAuth struct {
	profile *service.GoogleProfile
	err     error
}

func (s *stubGoogleOAuth) AuthorizationURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (s *stubGoogleOAuth) FetchProfile(ctx context.Context, code string) (*service.GoogleProfile, error) {
	return s.profile, s.err
}

// plainStateCodec uses "ua|ip|nonce" as state and rejects anything else.
type plainStateCodec struct{}

func (plainStateCodec) Encode(client service.ClientInfo, nonce string) (string, error) {
	return client.UserAgent + "|" + client.IP + "|" + nonce, nil
}

func (plainStateCodec) Decode(state string) (*service.OAuthState, error) {
	parts := strings.Split(state, "|")
	if len(parts) != 3 {
		return nil, service.ErrInvalidToken
	}

	return &service.OAuthState{UserAgent: parts[0], IP: parts[1], Nonce: parts[2]}, nil
}
