package dto

// SyncAccountResponse 单账号同步结果
type SyncAccountResponse struct {
	MlUserID int64 `json:"ml_user_id"`
	New      int   `json:"new"`
	Updated  int   `json:"updated"`
}

// FullImportResponse 全量导入结果
type FullImportResponse struct {
	MlUserID int64 `json:"ml_user_id"`
	Imported int   `json:"imported"`
}

// ReconcileRequest 历史对账请求
type ReconcileRequest struct {
	ReturnChanges bool `form:"return_changes"`
}

// ReconcileResponse 历史对账结果
type ReconcileResponse struct {
	MlUserID int64              `json:"ml_user_id"`
	New      int                `json:"new"`
	Updated  int                `json:"updated"`
	Changes  []StatusChangeItem `json:"changes,omitempty"`
}

// StatusChangeItem 对账捕获的状态变迁
type StatusChangeItem struct {
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}
