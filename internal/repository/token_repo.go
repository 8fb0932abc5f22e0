package repository

import (
	"context"
	"time"

	"nexus_erp_v1/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== TokenRepository 账号凭证仓库 ====================

// TokenRepository 账号凭证仓库接口
type TokenRepository interface {
	Upsert(ctx context.Context, token *model.AccountToken) error
	GetByMlUserID(ctx context.Context, mlUserID int64) (*model.AccountToken, error)
	List(ctx context.Context) ([]model.AccountToken, error)
	UpdateTokens(ctx context.Context, mlUserID int64, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateTokenStatus(ctx context.Context, mlUserID int64, status int) error
	UpdateSyncState(ctx context.Context, mlUserID int64, state string) error
	MarkSynced(ctx context.Context, mlUserID int64) error
	FindExpiring(ctx context.Context, within time.Duration) ([]model.AccountToken, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository 创建账号凭证仓库
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Upsert 按 ml_user_id 插入或覆盖（ON CONFLICT DO UPDATE）
func (r *tokenRepository) Upsert(ctx context.Context, token *model.AccountToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ml_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at", "nickname", "token_status", "updated_at",
		}),
	}).Create(token).Error
}

func (r *tokenRepository) GetByMlUserID(ctx context.Context, mlUserID int64) (*model.AccountToken, error) {
	var token model.AccountToken
	err := r.db.WithContext(ctx).Where("ml_user_id = ?", mlUserID).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) List(ctx context.Context) ([]model.AccountToken, error) {
	var tokens []model.AccountToken
	err := r.db.WithContext(ctx).Order("nickname ASC").Find(&tokens).Error
	return tokens, err
}

func (r *tokenRepository) UpdateTokens(ctx context.Context, mlUserID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.AccountToken{}).
		Where("ml_user_id = ?", mlUserID).
		Updates(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expires_at":    expiresAt,
			"token_status":  model.TokenStatusActive,
		}).Error
}

func (r *tokenRepository) UpdateTokenStatus(ctx context.Context, mlUserID int64, status int) error {
	return r.db.WithContext(ctx).Model(&model.AccountToken{}).
		Where("ml_user_id = ?", mlUserID).
		Update("token_status", status).Error
}

func (r *tokenRepository) UpdateSyncState(ctx context.Context, mlUserID int64, state string) error {
	return r.db.WithContext(ctx).Model(&model.AccountToken{}).
		Where("ml_user_id = ?", mlUserID).
		Update("sync_state", state).Error
}

func (r *tokenRepository) MarkSynced(ctx context.Context, mlUserID int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.AccountToken{}).
		Where("ml_user_id = ?", mlUserID).
		Updates(map[string]interface{}{
			"sync_state":   model.SyncStateIdle,
			"last_sync_at": &now,
		}).Error
}

// FindExpiring 查找 within 时间内即将过期且仍有效的账号
func (r *tokenRepository) FindExpiring(ctx context.Context, within time.Duration) ([]model.AccountToken, error) {
	var tokens []model.AccountToken
	deadline := time.Now().Add(within)
	err := r.db.WithContext(ctx).
		Where("expires_at <= ?", deadline).
		Where("token_status = ?", model.TokenStatusActive).
		Find(&tokens).Error
	return tokens, err
}
