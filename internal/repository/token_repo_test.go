package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"nexus_erp_v1/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTokenTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.AccountToken{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

func TestTokenRepository_UpsertKeepsSingleRow(t *testing.T) {
	repo := NewTokenRepository(setupTokenTestDB(t))
	ctx := context.Background()

	first := &model.AccountToken{
		MlUserID:     42,
		Nickname:     "LOJA",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
		TokenStatus:  model.TokenStatusActive,
		SyncState:    model.SyncStateIdle,
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("首次插入失败: %v", err)
	}

	// 重新授权同一账号：覆盖而不是新增
	second := &model.AccountToken{
		MlUserID:     42,
		Nickname:     "LOJA",
		AccessToken:  "at-2",
		RefreshToken: "rt-2",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
		TokenStatus:  model.TokenStatusActive,
		SyncState:    model.SyncStateIdle,
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("覆盖失败: %v", err)
	}

	tokens, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("同一账号只允许一行，实际 %d 行", len(tokens))
	}
	if tokens[0].AccessToken != "at-2" || tokens[0].RefreshToken != "rt-2" {
		t.Errorf("覆盖后 Token 错误: %+v", tokens[0])
	}
}

func TestTokenRepository_GetByMlUserID_NotFound(t *testing.T) {
	repo := NewTokenRepository(setupTokenTestDB(t))

	_, err := repo.GetByMlUserID(context.Background(), 999)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestTokenRepository_UpdateTokensReactivates(t *testing.T) {
	repo := NewTokenRepository(setupTokenTestDB(t))
	ctx := context.Background()

	repo.Upsert(ctx, &model.AccountToken{
		MlUserID:     42,
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    time.Now().Add(-time.Hour),
		TokenStatus:  model.TokenStatusInvalid,
	})

	newExpiry := time.Now().Add(6 * time.Hour)
	if err := repo.UpdateTokens(ctx, 42, "at-new", "rt-new", newExpiry); err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	token, _ := repo.GetByMlUserID(ctx, 42)
	if token.AccessToken != "at-new" || token.RefreshToken != "rt-new" {
		t.Errorf("Token 未更新: %+v", token)
	}
	if token.TokenStatus != model.TokenStatusActive {
		t.Errorf("刷新成功应恢复 active 状态，实际 %d", token.TokenStatus)
	}
	// 过期时间单调前移
	if !token.ExpiresAt.After(time.Now()) {
		t.Errorf("过期时间应在未来: %v", token.ExpiresAt)
	}
}

func TestTokenRepository_SyncStateMachine(t *testing.T) {
	repo := NewTokenRepository(setupTokenTestDB(t))
	ctx := context.Background()

	repo.Upsert(ctx, &model.AccountToken{
		MlUserID:     42,
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
		SyncState:    model.SyncStateIdle,
	})

	for _, state := range []string{
		model.SyncStateFetching,
		model.SyncStateEnriching,
		model.SyncStateUpserting,
		model.SyncStateFeeBackfill,
	} {
		if err := repo.UpdateSyncState(ctx, 42, state); err != nil {
			t.Fatalf("状态 %s 写入失败: %v", state, err)
		}
		token, _ := repo.GetByMlUserID(ctx, 42)
		if token.SyncState != state {
			t.Errorf("状态期望 %s，实际 %s", state, token.SyncState)
		}
	}

	if err := repo.MarkSynced(ctx, 42); err != nil {
		t.Fatalf("MarkSynced 失败: %v", err)
	}
	token, _ := repo.GetByMlUserID(ctx, 42)
	if token.SyncState != model.SyncStateIdle {
		t.Errorf("同步完成后应回到 idle，实际 %s", token.SyncState)
	}
	if token.LastSyncAt == nil {
		t.Error("MarkSynced 应记录 last_sync_at")
	}
}

func TestTokenRepository_FindExpiring(t *testing.T) {
	repo := NewTokenRepository(setupTokenTestDB(t))
	ctx := context.Background()

	// 1 小时内过期
	repo.Upsert(ctx, &model.AccountToken{
		MlUserID: 1, AccessToken: "a", RefreshToken: "r",
		ExpiresAt: time.Now().Add(30 * time.Minute), TokenStatus: model.TokenStatusActive,
	})
	// 还很久
	repo.Upsert(ctx, &model.AccountToken{
		MlUserID: 2, AccessToken: "a", RefreshToken: "r",
		ExpiresAt: time.Now().Add(5 * time.Hour), TokenStatus: model.TokenStatusActive,
	})
	// 临期但已失效：不刷
	repo.Upsert(ctx, &model.AccountToken{
		MlUserID: 3, AccessToken: "a", RefreshToken: "r",
		ExpiresAt: time.Now().Add(10 * time.Minute), TokenStatus: model.TokenStatusInvalid,
	})

	expiring, err := repo.FindExpiring(ctx, time.Hour)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(expiring) != 1 || expiring[0].MlUserID != 1 {
		t.Errorf("期望只有账号 1，实际 %d 条", len(expiring))
	}
}
