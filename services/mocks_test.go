package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/services"
)

// --- Mocks for Dependencies ---

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserRepository) FindAll(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	args := m.Called(ctx, page, limit)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}
func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockUserRepository) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	args := m.Called(ctx, rt)
	return args.Error(0)
}
func (m *MockUserRepository) FindRefreshToken(ctx context.Context, tokenID string) (*models.RefreshToken, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}
func (m *MockUserRepository) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}
func (m *MockUserRepository) RevokeAllRefreshTokens(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockTokenService struct{ mock.Mock }

func (m *MockTokenService) GenerateTokenPair(userID uint, email string) (*services.TokenPair, error) {
	args := m.Called(userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}
func (m *MockTokenService) ValidateToken(tokenStr, expectedType string) (*services.TokenClaims, error) {
	args := m.Called(tokenStr, expectedType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenClaims), args.Error(1)
}

type MockRBACRepository struct{ mock.Mock }

func (m *MockRBACRepository) CreateRole(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}
func (m *MockRBACRepository) FindRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}
func (m *MockRBACRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}
func (m *MockRBACRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Role), args.Error(1)
}
func (m *MockRBACRepository) UpdateRole(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}
func (m *MockRBACRepository) DeleteRole(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRBACRepository) FindPermissionByID(ctx context.Context, id uint) (*models.Permission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Permission), args.Error(1)
}
func (m *MockRBACRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Permission), args.Error(1)
}
func (m *MockRBACRepository) HasRolePermission(ctx context.Context, roleID, permissionID uint) (bool, error) {
	args := m.Called(ctx, roleID, permissionID)
	return args.Bool(0), args.Error(1)
}
func (m *MockRBACRepository) AddRolePermission(ctx context.Context, roleID, permissionID uint) error {
	args := m.Called(ctx, roleID, permissionID)
	return args.Error(0)
}
func (m *MockRBACRepository) RemoveRolePermission(ctx context.Context, roleID, permissionID uint) (bool, error) {
	args := m.Called(ctx, roleID, permissionID)
	return args.Bool(0), args.Error(1)
}
func (m *MockRBACRepository) ListRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).([]models.Permission), args.Error(1)
}
func (m *MockRBACRepository) HasUserRole(ctx context.Context, userID, roleID uint) (bool, error) {
	args := m.Called(ctx, userID, roleID)
	return args.Bool(0), args.Error(1)
}
func (m *MockRBACRepository) AddUserRole(ctx context.Context, userID, roleID uint) error {
	args := m.Called(ctx, userID, roleID)
	return args.Error(0)
}
func (m *MockRBACRepository) RemoveUserRole(ctx context.Context, userID, roleID uint) (bool, error) {
	args := m.Called(ctx, userID, roleID)
	return args.Bool(0), args.Error(1)
}
func (m *MockRBACRepository) ListUserRoles(ctx context.Context, userID uint) ([]models.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Role), args.Error(1)
}
func (m *MockRBACRepository) PermissionCodesForUser(ctx context.Context, userID uint) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockRBACRepository) EnsurePermission(ctx context.Context, perm *models.Permission) error {
	args := m.Called(ctx, perm)
	return args.Error(0)
}
func (m *MockRBACRepository) EnsureRole(ctx context.Context, role *models.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

// memPermissionCache is a map-backed PermissionCache.
type memPermissionCache struct {
	entries map[uint][]string
	flushes int
}

func newMemPermissionCache() *memPermissionCache {
	return &memPermissionCache{entries: map[uint][]string{}}
}

func (c *memPermissionCache) Get(_ context.Context, userID uint) ([]string, bool, error) {
	codes, ok := c.entries[userID]
	return codes, ok, nil
}
func (c *memPermissionCache) Set(_ context.Context, userID uint, codes []string) error {
	c.entries[userID] = codes
	return nil
}
func (c *memPermissionCache) Invalidate(_ context.Context, userID uint) error {
	delete(c.entries, userID)
	return nil
}
func (c *memPermissionCache) InvalidateAll(_ context.Context) error {
	c.entries = map[uint][]string{}
	c.flushes++
	return nil
}

// memIdempotencyStore is a map-backed IdempotencyStore.
type memIdempotencyStore struct{ values map[string]string }

func (s *memIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return s.values[key], nil
}
func (s *memIdempotencyStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.values[key] = value
	return nil
}

type MockPasswordResets struct{ mock.Mock }

func (m *MockPasswordResets) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockPasswordResets) FindValid(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash, now)
	if t := args.Get(0); t != nil {
		return t.(*models.PasswordResetToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) Consume(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockPasswordResets) InvalidateForUser(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}
