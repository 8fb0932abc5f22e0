package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"
	"nexus_erp_v1/pkg/meli"
)

func newAuthFixture(t *testing.T, gw *fakeGateway) (*AuthService, repository.TokenRepository) {
	db := setupServiceTestDB(t)
	tokenRepo := repository.NewTokenRepository(db)
	return NewAuthService(tokenRepo, gw), tokenRepo
}

func TestAuthService_CallbackFlow(t *testing.T) {
	gw := &fakeGateway{}
	gw.exchangeCodeFn = func(code string) (*meli.TokenResp, error) {
		if code != "the-code" {
			return nil, errors.New("invalid code")
		}
		return &meli.TokenResp{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			UserID:       42,
			ExpiresIn:    21600,
		}, nil
	}
	gw.getUserFn = func(mlUserID int64) (*meli.UserResp, error) {
		return &meli.UserResp{ID: mlUserID, Nickname: "LOJA-42"}, nil
	}

	svc, tokenRepo := newAuthFixture(t, gw)
	ctx := context.Background()

	// 登录链接里带 state
	authURL := svc.GenerateLoginURL()
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("授权链接非法: %v", err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatal("授权链接缺少 state")
	}

	// 回调用同一个 state 换 Token
	token, err := svc.HandleCallback(ctx, "the-code", state)
	if err != nil {
		t.Fatalf("回调失败: %v", err)
	}
	if token.MlUserID != 42 || token.Nickname != "LOJA-42" {
		t.Errorf("Token 信息错误: %+v", token)
	}

	stored, err := tokenRepo.GetByMlUserID(ctx, 42)
	if err != nil {
		t.Fatalf("凭证未入库: %v", err)
	}
	if stored.AccessToken != "at-1" || stored.TokenStatus != model.TokenStatusActive {
		t.Errorf("入库凭证错误: %+v", stored)
	}
	if !stored.ExpiresAt.After(time.Now().Add(5 * time.Hour)) {
		t.Errorf("过期时间应在约 6 小时后: %v", stored.ExpiresAt)
	}

	// state 一次性，重放直接拒绝
	if _, err := svc.HandleCallback(ctx, "the-code", state); err == nil {
		t.Error("重放 state 应被拒绝")
	}
}

func TestAuthService_CallbackRejectsUnknownState(t *testing.T) {
	svc, _ := newAuthFixture(t, &fakeGateway{})

	_, err := svc.HandleCallback(context.Background(), "code", "forged-state")
	if err == nil {
		t.Fatal("未知 state 应被拒绝")
	}
	if !strings.Contains(err.Error(), "state") {
		t.Errorf("错误信息应提示 state 问题: %v", err)
	}
}

func TestAuthService_AccessTokenProactiveRefresh(t *testing.T) {
	refreshCalls := 0
	gw := &fakeGateway{}
	gw.refreshTokenFn = func(refreshToken string) (*meli.TokenResp, error) {
		refreshCalls++
		return &meli.TokenResp{
			AccessToken:  "at-fresh",
			RefreshToken: "rt-fresh",
			UserID:       42,
			ExpiresIn:    21600,
		}, nil
	}

	svc, tokenRepo := newAuthFixture(t, gw)
	ctx := context.Background()

	// 还有 2 分钟就过期：应当先刷新
	tokenRepo.Upsert(ctx, &model.AccountToken{
		MlUserID:     42,
		AccessToken:  "at-stale",
		RefreshToken: "rt-stale",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
		TokenStatus:  model.TokenStatusActive,
	})

	got, err := svc.AccessToken(ctx, 42)
	if err != nil {
		t.Fatalf("获取 Token 失败: %v", err)
	}
	if got != "at-fresh" {
		t.Errorf("期望刷新后的 Token，实际 %q", got)
	}
	if refreshCalls != 1 {
		t.Errorf("期望刷新 1 次，实际 %d", refreshCalls)
	}

	// 落库后的新 Token 足够新鲜，第二次直接用
	got, err = svc.AccessToken(ctx, 42)
	if err != nil {
		t.Fatalf("第二次获取失败: %v", err)
	}
	if got != "at-fresh" || refreshCalls != 1 {
		t.Errorf("新鲜 Token 不应再触发刷新: token=%q calls=%d", got, refreshCalls)
	}
}

func TestAuthService_RefreshRejectedMarksInvalid(t *testing.T) {
	gw := &fakeGateway{}
	gw.refreshTokenFn = func(refreshToken string) (*meli.TokenResp, error) {
		return nil, meli.ErrAuthExpired
	}

	svc, tokenRepo := newAuthFixture(t, gw)
	ctx := context.Background()

	tokenRepo.Upsert(ctx, &model.AccountToken{
		MlUserID:     42,
		AccessToken:  "at",
		RefreshToken: "rt-revoked",
		ExpiresAt:    time.Now().Add(-time.Hour),
		TokenStatus:  model.TokenStatusActive,
	})

	_, err := svc.RefreshAccessToken(ctx, 42)
	if !errors.Is(err, meli.ErrAuthExpired) {
		t.Fatalf("期望 ErrAuthExpired，实际: %v", err)
	}

	// 标记失效但保留行
	stored, err := tokenRepo.GetByMlUserID(ctx, 42)
	if err != nil {
		t.Fatalf("凭证行不应被删除: %v", err)
	}
	if stored.TokenStatus != model.TokenStatusInvalid {
		t.Errorf("期望标记失效，实际 %d", stored.TokenStatus)
	}
	if stored.RefreshToken != "rt-revoked" {
		t.Errorf("失效凭证不应被改写: %q", stored.RefreshToken)
	}
}

func TestAuthService_AccessTokenUnknownAccount(t *testing.T) {
	svc, _ := newAuthFixture(t, &fakeGateway{})

	_, err := svc.AccessToken(context.Background(), 999)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("期望 ErrTokenNotFound，实际: %v", err)
	}
}
