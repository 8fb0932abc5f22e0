package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"nexus_erp_v1/internal/api/dto"
	"nexus_erp_v1/internal/middleware"
	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// 面板登录相关错误
var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrInvalidPassword = errors.New("密码错误")
	ErrUserDisabled    = errors.New("用户已禁用")
)

// UserService 面板用户服务
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService 创建面板用户服务
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Login 面板登录，签发 JWT
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}

	token, err := middleware.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("生成 Token 失败: %w", err)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		Username:    user.Username,
		Role:        user.Role,
	}, nil
}

// EnsureDefaultAdmin 首次启动时创建默认管理员
func (s *UserService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.userRepo.Create(ctx, &model.SysUser{
		Username: username,
		Password: string(hashed),
		Role:     "admin",
		IsActive: true,
	}); err != nil {
		return err
	}

	log.Printf("[Auth] 已创建默认管理员 %s，请尽快修改密码", username)
	return nil
}
