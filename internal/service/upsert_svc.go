package service

import (
	"context"
	"fmt"
	"time"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"

	"github.com/shopspring/decimal"
)

// ==================== Upsert 引擎 ====================

// StatusChange 一次对账中捕获到的状态变迁
type StatusChange struct {
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// UpsertResult 一批候选记录的落库结果
type UpsertResult struct {
	New     int            `json:"new"`
	Updated int            `json:"updated"`
	Changes []StatusChange `json:"changes,omitempty"`
}

// UpsertService 决定插入还是覆盖
// 约束：同一 order_id 不允许两个线程并发调用 Apply（账号内串行保证）
type UpsertService struct {
	saleRepo repository.SaleRepository
}

// NewUpsertService 创建 Upsert 引擎
func NewUpsertService(saleRepo repository.SaleRepository) *UpsertService {
	return &UpsertService{saleRepo: saleRepo}
}

// Apply 处理一条候选记录
// 不存在 → 插入（计 new）；存在且有字段差异 → 整体覆盖（计 updated）；无差异 → 不落库不计数
func (s *UpsertService) Apply(ctx context.Context, candidate *model.Sale, result *UpsertResult, trackChanges bool) error {
	existing, err := s.saleRepo.GetByOrderID(ctx, candidate.OrderID)
	if err != nil {
		return fmt.Errorf("查询订单 %d 失败: %w", candidate.OrderID, err)
	}

	if existing == nil {
		if err := s.saleRepo.Create(ctx, candidate); err != nil {
			return fmt.Errorf("插入订单 %d 失败: %w", candidate.OrderID, err)
		}
		result.New++
		return nil
	}

	if salesEqual(existing, candidate) {
		return nil
	}

	if trackChanges && model.NormalizeStatus(existing.Status) != model.NormalizeStatus(candidate.Status) {
		result.Changes = append(result.Changes, StatusChange{
			OrderID:   candidate.OrderID,
			OldStatus: existing.Status,
			NewStatus: candidate.Status,
		})
	}

	// 保留标识字段，其余整体覆盖
	candidate.ID = existing.ID
	candidate.MlUserID = existing.MlUserID
	candidate.CreatedAt = existing.CreatedAt
	if err := s.saleRepo.Save(ctx, candidate); err != nil {
		return fmt.Errorf("覆盖订单 %d 失败: %w", candidate.OrderID, err)
	}
	result.Updated++
	return nil
}

// ==================== 字段级 diff ====================

// salesEqual 比较全部非标识业务字段
// RawData 每次抓取都会变，不参与比较，否则所有记录永远"有差异"
// Status 走归一化后的词汇比较：库里的值会被整库归一化改写为
// Pago/Cancelado，而候选永远携带 ML 原始值，原样比较会把未变化的
// 记录当成每轮都有差异
func salesEqual(a, b *model.Sale) bool {
	if model.NormalizeStatus(a.Status) != model.NormalizeStatus(b.Status) ||
		a.StatusDetail != b.StatusDetail ||
		a.TotalAmount != b.TotalAmount ||
		a.Quantity != b.Quantity ||
		a.UnitPrice != b.UnitPrice ||
		a.ItemID != b.ItemID ||
		a.ItemTitle != b.ItemTitle {
		return false
	}

	if a.BuyerID != b.BuyerID ||
		a.BuyerNickname != b.BuyerNickname ||
		a.BuyerEmail != b.BuyerEmail ||
		a.BuyerFirstName != b.BuyerFirstName ||
		a.BuyerLastName != b.BuyerLastName {
		return false
	}

	if a.ShippingID != b.ShippingID ||
		a.ShippingStatus != b.ShippingStatus ||
		a.ShippingSubstatus != b.ShippingSubstatus ||
		a.LogisticType != b.LogisticType ||
		a.ReceiverName != b.ReceiverName ||
		!timePtrEqual(a.DeliveryLimit, b.DeliveryLimit) ||
		!timePtrEqual(a.DeliveryFinal, b.DeliveryFinal) ||
		!timePtrEqual(a.SlaExpectedDate, b.SlaExpectedDate) ||
		!timePtrEqual(a.ShippingUpdatedAt, b.ShippingUpdatedAt) {
		return false
	}

	if a.City != b.City ||
		a.State != b.State ||
		a.Country != b.Country ||
		a.ZipCode != b.ZipCode ||
		a.StreetName != b.StreetName ||
		a.StreetNumber != b.StreetNumber {
		return false
	}

	if a.SellerSKU != b.SellerSKU ||
		a.Level1 != b.Level1 ||
		a.Level2 != b.Level2 ||
		!intPtrEqual(a.QuantitySKU, b.QuantitySKU) ||
		!decimalEqual(a.UnitCost, b.UnitCost) ||
		!decimalEqual(a.MlFee, b.MlFee) ||
		!decimalEqual(a.Ads, b.Ads) ||
		!int64PtrEqual(a.PaymentID, b.PaymentID) {
		return false
	}

	if !a.DateClosed.Equal(b.DateClosed) ||
		!timePtrEqual(a.DateCreated, b.DateCreated) {
		return false
	}

	return true
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func decimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}
