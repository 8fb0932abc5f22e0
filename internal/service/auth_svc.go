package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"
	"nexus_erp_v1/pkg/meli"
	"nexus_erp_v1/pkg/utils"

	"github.com/google/uuid"
)

// ErrTokenNotFound 账号未授权过
var ErrTokenNotFound = errors.New("account token not found")

// 提前刷新余量：过期前 5 分钟就主动换新，避免拉单途中撞 401
const tokenSkew = 5 * time.Minute

// AuthService 账号授权服务
// 同时实现 meli.TokenSource，为客户端的 401 重试策略供 Token
type AuthService struct {
	tokenRepo repository.TokenRepository
	client    MeliGateway
	states    *utils.StateCache
}

// NewAuthService 创建授权服务
func NewAuthService(tokenRepo repository.TokenRepository, client MeliGateway) *AuthService {
	return &AuthService{
		tokenRepo: tokenRepo,
		client:    client,
		states:    utils.NewStateCache(),
	}
}

// ==================== 授权流程 ====================

// GenerateLoginURL 生成 ML 授权链接
func (s *AuthService) GenerateLoginURL() string {
	state := uuid.NewString()
	// state 十分钟内有效，回调时校验
	s.states.Set(state, "1")
	return s.client.BuildAuthURL(state)
}

// HandleCallback 处理授权回调：code 换 Token，落库，补昵称
func (s *AuthService) HandleCallback(ctx context.Context, code, state string) (*model.AccountToken, error) {
	if _, ok := s.states.Get(state); !ok {
		return nil, fmt.Errorf("授权超时或 state 无效，请重新发起")
	}
	s.states.Delete(state)

	resp, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("换取 Token 失败: %w", err)
	}

	token := &model.AccountToken{
		MlUserID:     resp.UserID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		TokenStatus:  model.TokenStatusActive,
		SyncState:    model.SyncStateIdle,
	}
	if err := s.tokenRepo.Upsert(ctx, token); err != nil {
		return nil, fmt.Errorf("凭证入库失败: %w", err)
	}

	// 昵称仅用于面板展示，拿不到不影响授权结果
	if user, err := s.client.GetUser(ctx, resp.UserID); err != nil {
		log.Printf("[Auth] 获取账号 %d 昵称失败: %v", resp.UserID, err)
	} else if user.Nickname != "" {
		token.Nickname = user.Nickname
		if err := s.tokenRepo.Upsert(ctx, token); err != nil {
			log.Printf("[Auth] 更新账号 %d 昵称失败: %v", resp.UserID, err)
		}
	}

	return token, nil
}

// ==================== meli.TokenSource 实现 ====================

// AccessToken 返回当前可用的 access_token
// 已知临近过期时先行刷新，而不是等上游打回 401
func (s *AuthService) AccessToken(ctx context.Context, mlUserID int64) (string, error) {
	token, err := s.tokenRepo.GetByMlUserID(ctx, mlUserID)
	if err != nil {
		return "", fmt.Errorf("%w: %d", ErrTokenNotFound, mlUserID)
	}

	if token.IsExpiring(tokenSkew) {
		return s.RefreshAccessToken(ctx, mlUserID)
	}
	return token.AccessToken, nil
}

// RefreshAccessToken 用 refresh_token 换新并落库
// refresh 被拒（revoked/malformed）时标记账号失效并返回 meli.ErrAuthExpired，
// 不销毁已有 Token，等待人工重新授权
func (s *AuthService) RefreshAccessToken(ctx context.Context, mlUserID int64) (string, error) {
	token, err := s.tokenRepo.GetByMlUserID(ctx, mlUserID)
	if err != nil {
		return "", fmt.Errorf("%w: %d", ErrTokenNotFound, mlUserID)
	}

	resp, err := s.client.RefreshToken(ctx, token.RefreshToken)
	if err != nil {
		if errors.Is(err, meli.ErrAuthExpired) {
			if dbErr := s.tokenRepo.UpdateTokenStatus(ctx, mlUserID, model.TokenStatusInvalid); dbErr != nil {
				log.Printf("[Auth] 标记账号 %d 失效出错: %v", mlUserID, dbErr)
			}
		}
		return "", err
	}

	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if err := s.tokenRepo.UpdateTokens(ctx, mlUserID, resp.AccessToken, resp.RefreshToken, expiresAt); err != nil {
		return "", fmt.Errorf("刷新后落库失败: %w", err)
	}

	return resp.AccessToken, nil
}
