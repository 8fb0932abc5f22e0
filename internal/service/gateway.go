package service

import (
	"context"

	"nexus_erp_v1/pkg/meli"
)

// ==================== 依赖接口 ====================

// MeliGateway 同步引擎依赖的上游能力
// 生产实现为 *meli.Client；测试中用假实现替换
type MeliGateway interface {
	BuildAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*meli.TokenResp, error)
	RefreshToken(ctx context.Context, refreshToken string) (*meli.TokenResp, error)
	GetUser(ctx context.Context, mlUserID int64) (*meli.UserResp, error)

	SearchAllOrders(ctx context.Context, mlUserID int64, f meli.SearchFilter) ([]meli.OrderSummary, error)
	GetOrder(ctx context.Context, mlUserID, orderID int64) (*meli.OrderDetail, error)
	GetOrderPayments(ctx context.Context, mlUserID, orderID int64) ([]meli.Payment, error)
	GetShipment(ctx context.Context, mlUserID, shipmentID int64) (*meli.ShipmentResp, error)
	GetShipmentSLA(ctx context.Context, mlUserID, shipmentID int64) (*meli.ShipmentSLAResp, error)
	GetItem(ctx context.Context, mlUserID int64, itemID string) (*meli.ItemResp, error)
}
