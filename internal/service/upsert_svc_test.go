package service

import (
	"context"
	"testing"
	"time"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"
)

func makeCandidate(orderID int64, status string) *model.Sale {
	return &model.Sale{
		OrderID:     orderID,
		MlUserID:    1,
		Status:      status,
		ItemTitle:   "Produto Teste",
		Quantity:    1,
		UnitPrice:   150,
		TotalAmount: 150,
		DateClosed:  time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestUpsertService_InsertThenNoop(t *testing.T) {
	db := setupServiceTestDB(t)
	saleRepo := repository.NewSaleRepository(db)
	svc := NewUpsertService(saleRepo)
	ctx := context.Background()

	result := &UpsertResult{}
	if err := svc.Apply(ctx, makeCandidate(100, "paid"), result, false); err != nil {
		t.Fatalf("首次落库失败: %v", err)
	}
	if result.New != 1 || result.Updated != 0 {
		t.Errorf("期望 new=1 updated=0，实际 %+v", result)
	}

	// 同样的候选再来一遍：幂等，不计数
	if err := svc.Apply(ctx, makeCandidate(100, "paid"), result, false); err != nil {
		t.Fatalf("重复落库失败: %v", err)
	}
	if result.New != 1 || result.Updated != 0 {
		t.Errorf("相同候选应为 no-op，实际 %+v", result)
	}

	var count int64
	db.Model(&model.Sale{}).Count(&count)
	if count != 1 {
		t.Errorf("期望 1 行，实际 %d", count)
	}
}

func TestUpsertService_FieldDiffOverwrites(t *testing.T) {
	db := setupServiceTestDB(t)
	saleRepo := repository.NewSaleRepository(db)
	svc := NewUpsertService(saleRepo)
	ctx := context.Background()

	result := &UpsertResult{}
	svc.Apply(ctx, makeCandidate(100, "paid"), result, false)

	// 物流状态变了：整体覆盖，计 updated
	changed := makeCandidate(100, "paid")
	changed.ShippingStatus = "delivered"
	if err := svc.Apply(ctx, changed, result, false); err != nil {
		t.Fatalf("覆盖失败: %v", err)
	}
	if result.New != 1 || result.Updated != 1 {
		t.Errorf("期望 new=1 updated=1，实际 %+v", result)
	}

	got, _ := saleRepo.GetByOrderID(ctx, 100)
	if got.ShippingStatus != "delivered" {
		t.Errorf("覆盖未生效: %q", got.ShippingStatus)
	}
}

func TestUpsertService_RawDataChangeAloneIsNoop(t *testing.T) {
	db := setupServiceTestDB(t)
	saleRepo := repository.NewSaleRepository(db)
	svc := NewUpsertService(saleRepo)
	ctx := context.Background()

	first := makeCandidate(100, "paid")
	first.RawData = []byte(`{"v":1}`)
	result := &UpsertResult{}
	svc.Apply(ctx, first, result, false)

	// 原始 JSON 每次拉取都会变（字段顺序、毫秒），不算业务差异
	second := makeCandidate(100, "paid")
	second.RawData = []byte(`{"v":2}`)
	if err := svc.Apply(ctx, second, result, false); err != nil {
		t.Fatalf("落库失败: %v", err)
	}
	if result.Updated != 0 {
		t.Errorf("仅 raw_data 变化不应计 updated，实际 %+v", result)
	}
}

func TestUpsertService_TracksStatusChanges(t *testing.T) {
	db := setupServiceTestDB(t)
	saleRepo := repository.NewSaleRepository(db)
	svc := NewUpsertService(saleRepo)
	ctx := context.Background()

	result := &UpsertResult{}
	svc.Apply(ctx, makeCandidate(100, "paid"), result, true)

	// 对账时发现上游已退款
	refunded := makeCandidate(100, "refunded")
	if err := svc.Apply(ctx, refunded, result, true); err != nil {
		t.Fatalf("落库失败: %v", err)
	}

	if len(result.Changes) != 1 {
		t.Fatalf("期望 1 条状态变迁，实际 %d", len(result.Changes))
	}
	ch := result.Changes[0]
	if ch.OrderID != 100 || ch.OldStatus != "paid" || ch.NewStatus != "refunded" {
		t.Errorf("状态变迁记录错误: %+v", ch)
	}
}

func TestUpsertService_NoTrackingWhenDisabled(t *testing.T) {
	db := setupServiceTestDB(t)
	saleRepo := repository.NewSaleRepository(db)
	svc := NewUpsertService(saleRepo)
	ctx := context.Background()

	result := &UpsertResult{}
	svc.Apply(ctx, makeCandidate(100, "paid"), result, false)
	svc.Apply(ctx, makeCandidate(100, "cancelled"), result, false)

	if len(result.Changes) != 0 {
		t.Errorf("未开启追踪不应记录变迁，实际 %d 条", len(result.Changes))
	}
	if result.Updated != 1 {
		t.Errorf("覆盖仍应计数: %+v", result)
	}
}

func TestUpsertService_PreservesIdentityOnOverwrite(t *testing.T) {
	db := setupServiceTestDB(t)
	saleRepo := repository.NewSaleRepository(db)
	svc := NewUpsertService(saleRepo)
	ctx := context.Background()

	result := &UpsertResult{}
	svc.Apply(ctx, makeCandidate(100, "paid"), result, false)
	before, _ := saleRepo.GetByOrderID(ctx, 100)

	changed := makeCandidate(100, "cancelled")
	svc.Apply(ctx, changed, result, false)
	after, _ := saleRepo.GetByOrderID(ctx, 100)

	if after.ID != before.ID {
		t.Errorf("覆盖不应更换主键: %d → %d", before.ID, after.ID)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("覆盖不应改写 created_at")
	}
}

func TestUpsertService_NormalizedStatusAloneIsNoop(t *testing.T) {
	db := setupServiceTestDB(t)
	saleRepo := repository.NewSaleRepository(db)
	svc := NewUpsertService(saleRepo)
	ctx := context.Background()

	result := &UpsertResult{}
	svc.Apply(ctx, makeCandidate(100, "paid"), result, true)

	// 整库归一化把库里的值改写为 Pago
	if _, err := saleRepo.NormalizeStatuses(ctx); err != nil {
		t.Fatalf("归一化失败: %v", err)
	}

	// 下一轮抓取仍然带 ML 原始值：不算差异，不记变迁
	if err := svc.Apply(ctx, makeCandidate(100, "paid"), result, true); err != nil {
		t.Fatalf("落库失败: %v", err)
	}
	if result.Updated != 0 {
		t.Errorf("归一化后的同义状态不应计 updated，实际 %+v", result)
	}
	if len(result.Changes) != 0 {
		t.Errorf("不应记录 Pago → paid 伪变迁，实际 %+v", result.Changes)
	}

	got, _ := saleRepo.GetByOrderID(ctx, 100)
	if got.Status != model.StatusPago {
		t.Errorf("库里应保持 %q，实际 %q", model.StatusPago, got.Status)
	}
}
