package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"github.com/yashrajoria/management-backend/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUserAssignsClientRole(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	rbacRepo := new(MockRBACRepository)
	svc := services.NewUserService(userRepo, rbacRepo, nil, zap.NewNop())

	userRepo.On("FindByEmail", ctx, "new@example.com").Return(nil, repository.ErrNotFound).Once()
	userRepo.On("FindByUsername", ctx, "newbie").Return(nil, repository.ErrNotFound).Once()
	userRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 11 }).
		Return(nil).Once()
	rbacRepo.On("FindRoleByName", ctx, models.RoleClient).Return(&models.Role{ID: 4, Name: models.RoleClient}, nil).Once()
	rbacRepo.On("AddUserRole", ctx, uint(11), uint(4)).Return(nil).Once()

	user, svcErr := svc.Create(ctx, &models.CreateUserRequest{Email: "New@Example.com", Username: "newbie", Password: "password123"})

	require.Nil(t, svcErr)
	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
	userRepo.AssertExpectations(t)
	rbacRepo.AssertExpectations(t)
}

func TestCreateUserEmailTaken(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	svc := services.NewUserService(userRepo, new(MockRBACRepository), nil, zap.NewNop())

	userRepo.On("FindByEmail", ctx, "taken@example.com").Return(&models.User{ID: 2}, nil).Once()

	_, svcErr := svc.Create(ctx, &models.CreateUserRequest{Email: "taken@example.com", Username: "someone", Password: "password123"})

	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDisableUserRevokesSessions(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	svc := services.NewUserService(userRepo, new(MockRBACRepository), nil, zap.NewNop())
	user := &models.User{ID: 3, IsActive: true}

	userRepo.On("FindByID", ctx, uint(3)).Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil).Once()
	userRepo.On("RevokeAllRefreshTokens", ctx, uint(3)).Return(nil).Once()

	got, svcErr := svc.Disable(ctx, 3)

	require.Nil(t, svcErr)
	assert.False(t, got.IsActive)
	userRepo.AssertExpectations(t)
}

func TestDeleteUserInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	cache := newMemPermissionCache()
	cache.entries[3] = []string{"users:view"}
	svc := services.NewUserService(userRepo, new(MockRBACRepository), cache, zap.NewNop())

	userRepo.On("Delete", ctx, uint(3)).Return(nil).Once()
	userRepo.On("Delete", ctx, uint(4)).Return(repository.ErrNotFound).Once()

	assert.Nil(t, svc.Delete(ctx, 3))
	assert.NotContains(t, cache.entries, uint(3))

	svcErr := svc.Delete(ctx, 4)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestUpdateUsernameConflict(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	svc := services.NewUserService(userRepo, new(MockRBACRepository), nil, zap.NewNop())

	userRepo.On("FindByID", ctx, uint(3)).Return(&models.User{ID: 3, Username: "me", Email: "me@example.com"}, nil)
	userRepo.On("FindByUsername", ctx, "you").Return(&models.User{ID: 9, Username: "you"}, nil).Once()

	username := "you"
	_, svcErr := svc.Update(ctx, 3, &models.UpdateUserRequest{Username: &username})

	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
}
