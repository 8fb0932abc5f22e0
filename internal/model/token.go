package model

import "time"

// ==================== Token 状态常量 ====================

const (
	TokenStatusActive  = 1 // 正常
	TokenStatusInvalid = 2 // refresh_token 失效，需人工重新授权
)

// ==================== 同步状态机 ====================

// 账号在一次同步运行中的状态
// idle → fetching → enriching → upserting → fee_backfill → idle，任意状态可进入 error
const (
	SyncStateIdle        = "idle"
	SyncStateFetching    = "fetching"
	SyncStateEnriching   = "enriching"
	SyncStateUpserting   = "upserting"
	SyncStateFeeBackfill = "fee_backfill"
	SyncStateError       = "error"
)

// ==================== AccountToken ====================

// AccountToken ML 卖家账号凭证
// 每个 ml_user_id 至多一行；刷新只覆盖，不删除
type AccountToken struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	MlUserID     int64  `gorm:"uniqueIndex;not null"`
	Nickname     string `gorm:"size:100"`
	AccessToken  string `gorm:"size:500;not null"`
	RefreshToken string `gorm:"size:500;not null"`
	ExpiresAt    time.Time

	TokenStatus int    `gorm:"default:1"`
	SyncState   string `gorm:"size:20;default:idle"`
	LastSyncAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccountToken) TableName() string {
	return "user_tokens"
}

// IsExpiring 是否即将过期（含安全余量）
func (t *AccountToken) IsExpiring(skew time.Duration) bool {
	return time.Now().Add(skew).After(t.ExpiresAt)
}
