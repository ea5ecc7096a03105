package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	users  repository.UserRepository
	rbac   repository.RBACRepository
	cache  repository.PermissionCache
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, rbac repository.RBACRepository, cache repository.PermissionCache, logger *zap.Logger) *UserService {
	return &UserService{users: users, rbac: rbac, cache: cache, logger: logger}
}

var errUserNotFound = &ServiceError{StatusCode: http.StatusNotFound, Message: "User not found"}

// Create registers an active user holding the client role.
func (s *UserService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, *ServiceError) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if svcErr := s.checkUnique(ctx, 0, email, username); svcErr != nil {
		return nil, svcErr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to hash password"}
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ServiceError{StatusCode: http.StatusConflict, Message: "Email or username already taken"}
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to create user"}
	}

	role, err := s.rbac.FindRoleByName(ctx, models.RoleClient)
	if err != nil {
		s.logger.Warn("Client role missing, user created without roles", zap.Uint("user_id", user.ID), zap.Error(err))
		return user, nil
	}
	if err := s.rbac.AddUserRole(ctx, user.ID, role.ID); err != nil {
		s.logger.Error("Failed to assign client role", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("User created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, *ServiceError) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		s.logger.Error("Failed to load user", zap.Uint("user_id", id), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to load user"}
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, page, limit int) ([]models.User, int64, *ServiceError) {
	users, total, err := s.users.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to list users"}
	}
	return users, total, nil
}

// Update changes email and/or username.
func (s *UserService) Update(ctx context.Context, id uint, req *models.UpdateUserRequest) (*models.User, *ServiceError) {
	user, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}

	email, username := "", ""
	if req.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*req.Email))
		if email == user.Email {
			email = ""
		}
	}
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
		if username == user.Username {
			username = ""
		}
	}
	if svcErr := s.checkUnique(ctx, user.ID, email, username); svcErr != nil {
		return nil, svcErr
	}
	if email != "" {
		user.Email = email
	}
	if username != "" {
		user.Username = username
	}

	return s.save(ctx, user)
}

func (s *UserService) Disable(ctx context.Context, id uint) (*models.User, *ServiceError) {
	return s.setActive(ctx, id, false)
}

func (s *UserService) Enable(ctx context.Context, id uint) (*models.User, *ServiceError) {
	return s.setActive(ctx, id, true)
}

func (s *UserService) Delete(ctx context.Context, id uint) *ServiceError {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		s.logger.Error("Failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to delete user"}
	}
	s.invalidate(ctx, id)
	s.logger.Info("User deleted", zap.Uint("user_id", id))
	return nil
}

func (s *UserService) setActive(ctx context.Context, id uint, active bool) (*models.User, *ServiceError) {
	user, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	user, svcErr = s.save(ctx, user)
	if svcErr != nil {
		return nil, svcErr
	}
	if !active {
		if err := s.users.RevokeAllRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("Failed to revoke refresh tokens of disabled user", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *models.User) (*models.User, *ServiceError) {
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ServiceError{StatusCode: http.StatusConflict, Message: "Email or username already taken"}
		}
		s.logger.Error("Failed to update user", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to update user"}
	}
	return user, nil
}

// checkUnique reports a conflict when email or username belongs to a user
// other than selfID. Empty values are skipped.
func (s *UserService) checkUnique(ctx context.Context, selfID uint, email, username string) *ServiceError {
	if email != "" {
		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil && existing.ID != selfID {
			return &ServiceError{StatusCode: http.StatusConflict, Message: "Email already taken"}
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to check email"}
		}
	}
	if username != "" {
		existing, err := s.users.FindByUsername(ctx, username)
		if err == nil && existing.ID != selfID {
			return &ServiceError{StatusCode: http.StatusConflict, Message: "Username already taken"}
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to check username"}
		}
	}
	return nil
}

func (s *UserService) invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate permission cache", zap.Uint("user_id", userID), zap.Error(err))
	}
}
