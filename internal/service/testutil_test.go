package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/pkg/meli"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== 测试数据库 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	// 内存库每个连接各自独立，收紧到单连接让并发用例共享同一份数据
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.AccountToken{}, &model.Sale{}, &model.SkuMapping{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

// ==================== 假上游 ====================

// fakeGateway 可编程的 ML 假实现
// 未配置的端点一律返回 errNotStubbed，富化流水线会按跳过处理
var errNotStubbed = errors.New("endpoint not stubbed")

type fakeGateway struct {
	exchangeCodeFn   func(code string) (*meli.TokenResp, error)
	refreshTokenFn   func(refreshToken string) (*meli.TokenResp, error)
	getUserFn        func(mlUserID int64) (*meli.UserResp, error)
	searchAllFn      func(mlUserID int64, f meli.SearchFilter) ([]meli.OrderSummary, error)
	getOrderFn       func(orderID int64) (*meli.OrderDetail, error)
	getPaymentsFn    func(orderID int64) ([]meli.Payment, error)
	getShipmentFn    func(shipmentID int64) (*meli.ShipmentResp, error)
	getShipmentSLAFn func(shipmentID int64) (*meli.ShipmentSLAResp, error)
	getItemFn        func(itemID string) (*meli.ItemResp, error)
}

func (f *fakeGateway) BuildAuthURL(state string) string {
	return "https://auth.test/authorization?state=" + state
}

func (f *fakeGateway) ExchangeCode(ctx context.Context, code string) (*meli.TokenResp, error) {
	if f.exchangeCodeFn == nil {
		return nil, errNotStubbed
	}
	return f.exchangeCodeFn(code)
}

func (f *fakeGateway) RefreshToken(ctx context.Context, refreshToken string) (*meli.TokenResp, error) {
	if f.refreshTokenFn == nil {
		return nil, errNotStubbed
	}
	return f.refreshTokenFn(refreshToken)
}

func (f *fakeGateway) GetUser(ctx context.Context, mlUserID int64) (*meli.UserResp, error) {
	if f.getUserFn == nil {
		return nil, errNotStubbed
	}
	return f.getUserFn(mlUserID)
}

func (f *fakeGateway) SearchAllOrders(ctx context.Context, mlUserID int64, filter meli.SearchFilter) ([]meli.OrderSummary, error) {
	if f.searchAllFn == nil {
		return nil, errNotStubbed
	}
	return f.searchAllFn(mlUserID, filter)
}

func (f *fakeGateway) GetOrder(ctx context.Context, mlUserID, orderID int64) (*meli.OrderDetail, error) {
	if f.getOrderFn == nil {
		return nil, errNotStubbed
	}
	return f.getOrderFn(orderID)
}

func (f *fakeGateway) GetOrderPayments(ctx context.Context, mlUserID, orderID int64) ([]meli.Payment, error) {
	if f.getPaymentsFn == nil {
		return nil, errNotStubbed
	}
	return f.getPaymentsFn(orderID)
}

func (f *fakeGateway) GetShipment(ctx context.Context, mlUserID, shipmentID int64) (*meli.ShipmentResp, error) {
	if f.getShipmentFn == nil {
		return nil, errNotStubbed
	}
	return f.getShipmentFn(shipmentID)
}

func (f *fakeGateway) GetShipmentSLA(ctx context.Context, mlUserID, shipmentID int64) (*meli.ShipmentSLAResp, error) {
	if f.getShipmentSLAFn == nil {
		return nil, errNotStubbed
	}
	return f.getShipmentSLAFn(shipmentID)
}

func (f *fakeGateway) GetItem(ctx context.Context, mlUserID int64, itemID string) (*meli.ItemResp, error) {
	if f.getItemFn == nil {
		return nil, errNotStubbed
	}
	return f.getItemFn(itemID)
}

// ==================== 造数辅助 ====================

// makeOrder 指定闭单时间的 paid 订单摘要
func makeOrder(orderID int64, status string, closed time.Time) meli.OrderSummary {
	var o meli.OrderDetail
	o.ID = orderID
	o.Status = status
	saoPaulo := time.FixedZone("-03:00", -3*3600)
	o.DateClosed = closed.In(saoPaulo).Format(time.RFC3339)
	o.DateCreated = closed.Add(-time.Hour).In(saoPaulo).Format(time.RFC3339)
	o.TotalAmount = 150
	o.OrderItems = []meli.OrderItem{{
		Item:      meli.Item{ID: "MLB123", Title: "Produto Teste", SellerSKU: "SKU-1"},
		Quantity:  1,
		UnitPrice: 150,
	}}
	return o
}
