package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"
	"nexus_erp_v1/pkg/meli"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 卖家经营时区：所有上游 ISO-8601 时间戳统一换算到这里再去掉时区信息
const sellerTimezone = "America/Sao_Paulo"

// EnrichService 订单富化服务
// 输入一条搜索摘要，输出可提交给 Upsert 引擎的完整 Sale 候选
// 对销售库只读；每个步骤独立失败、记日志后跳过，不中断整单
type EnrichService struct {
	client  MeliGateway
	skuRepo repository.SkuRepository
	loc     *time.Location
}

// NewEnrichService 创建富化服务
func NewEnrichService(client MeliGateway, skuRepo repository.SkuRepository) *EnrichService {
	loc, err := time.LoadLocation(sellerTimezone)
	if err != nil {
		log.Printf("[Enrich] 加载时区 %s 失败，退回 UTC: %v", sellerTimezone, err)
		loc = time.UTC
	}
	return &EnrichService{
		client:  client,
		skuRepo: skuRepo,
		loc:     loc,
	}
}

// Enrich 富化流水线
// 步骤：详情 → 支付兜底 → 物流+SLA → 商品 SKU 回填 → 本地 SKU 维度关联
func (s *EnrichService) Enrich(ctx context.Context, mlUserID int64, summary meli.OrderSummary) *model.Sale {
	order := &summary

	// 1) 详情取代摘要
	if detail, err := s.client.GetOrder(ctx, mlUserID, summary.ID); err != nil {
		log.Printf("[Enrich] 订单 %d 详情获取失败，用摘要继续: %v", summary.ID, err)
	} else {
		order = detail
	}

	sale := s.saleFromOrder(mlUserID, order)

	s.stepPayments(ctx, mlUserID, order, sale)
	s.stepShipment(ctx, mlUserID, sale)
	s.stepItemSKU(ctx, mlUserID, sale)
	s.stepSkuJoin(ctx, sale)

	return sale
}

// ==================== 流水线步骤 ====================

// stepPayments 费用：详情自带 payments 则直接取，否则请求子资源
func (s *EnrichService) stepPayments(ctx context.Context, mlUserID int64, order *meli.OrderDetail, sale *model.Sale) {
	payments := order.Payments
	if len(payments) == 0 {
		fetched, err := s.client.GetOrderPayments(ctx, mlUserID, order.ID)
		if err != nil {
			log.Printf("[Enrich] 订单 %d 支付信息获取失败: %v", order.ID, err)
			return
		}
		payments = fetched
	}
	if len(payments) == 0 {
		return
	}

	p := payments[0]
	paymentID := p.ID
	sale.PaymentID = &paymentID
	sale.MlFee = decimal.NewNullDecimal(decimal.NewFromFloat(p.MarketplaceFee))
}

// stepShipment 物流：状态、物流类型、承诺送达窗口、收货人
func (s *EnrichService) stepShipment(ctx context.Context, mlUserID int64, sale *model.Sale) {
	if sale.ShippingID == 0 {
		return
	}

	shipment, err := s.client.GetShipment(ctx, mlUserID, sale.ShippingID)
	if err != nil {
		log.Printf("[Enrich] 订单 %d 物流 %d 获取失败: %v", sale.OrderID, sale.ShippingID, err)
		return
	}

	sale.ShippingStatus = shipment.Status
	sale.ShippingSubstatus = shipment.Substatus
	sale.LogisticType = shipment.LogisticType
	sale.ShippingUpdatedAt = s.parseTime(shipment.LastUpdated)
	sale.DeliveryLimit = s.parseTime(shipment.ShippingOption.EstimatedDeliveryLimit.Date)
	sale.DeliveryFinal = s.parseTime(shipment.ShippingOption.EstimatedDeliveryFinal.Date)

	addr := shipment.ReceiverAddress
	sale.ReceiverName = addr.ReceiverName
	sale.City = addr.City.Name
	sale.State = addr.State.Name
	sale.Country = addr.Country.ID
	sale.ZipCode = addr.ZipCode
	sale.StreetName = addr.StreetName
	sale.StreetNumber = addr.StreetNumber

	// SLA 子资源不是所有物流类型都有
	if sla, err := s.client.GetShipmentSLA(ctx, mlUserID, sale.ShippingID); err != nil {
		log.Printf("[Enrich] 物流 %d SLA 获取失败: %v", sale.ShippingID, err)
	} else {
		sale.SlaExpectedDate = s.parseTime(sla.ExpectedDate)
	}
}

// stepItemSKU 搜索结果缺 seller_sku 时向商品详情要（历史订单常见）
func (s *EnrichService) stepItemSKU(ctx context.Context, mlUserID int64, sale *model.Sale) {
	if sale.SellerSKU != "" || sale.ItemID == "" {
		return
	}

	item, err := s.client.GetItem(ctx, mlUserID, sale.ItemID)
	if err != nil {
		log.Printf("[Enrich] 商品 %s SKU 回填失败: %v", sale.ItemID, err)
		return
	}
	if item.SellerSKU != "" {
		sale.SellerSKU = item.SellerSKU
	} else if item.SellerCustomField != "" {
		sale.SellerSKU = item.SellerCustomField
	}
}

// stepSkuJoin 关联本地 SKU 维度：成本、类目、件数系数（最新版本生效）
func (s *EnrichService) stepSkuJoin(ctx context.Context, sale *model.Sale) {
	if sale.SellerSKU == "" {
		return
	}

	sku, err := s.skuRepo.LatestByCode(ctx, sale.SellerSKU)
	if err != nil {
		log.Printf("[Enrich] SKU %s 本地映射查询失败: %v", sale.SellerSKU, err)
		return
	}
	if sku == nil {
		return
	}

	sale.UnitCost = decimal.NewNullDecimal(sku.UnitCost)
	sale.Level1 = sku.Level1
	sale.Level2 = sku.Level2
	if sku.UnitsPerSale > 0 {
		qty := sale.Quantity * sku.UnitsPerSale
		sale.QuantitySKU = &qty
	}
}

// ==================== 转换辅助 ====================

// saleFromOrder 把 ML 订单 JSON 映射为 Sale 记录
func (s *EnrichService) saleFromOrder(mlUserID int64, order *meli.OrderDetail) *model.Sale {
	sale := &model.Sale{
		OrderID:       order.ID,
		MlUserID:      mlUserID,
		Status:        order.Status,
		StatusDetail:  order.StatusDetail,
		TotalAmount:   order.TotalAmount,
		BuyerID:       order.Buyer.ID,
		BuyerNickname: order.Buyer.Nickname,
		BuyerEmail:    order.Buyer.Email,
	}
	sale.BuyerFirstName = order.Buyer.FirstName
	sale.BuyerLastName = order.Buyer.LastName
	sale.ShippingID = order.Shipping.ID

	// 首行商品（该店铺一单一品）
	if len(order.OrderItems) > 0 {
		line := order.OrderItems[0]
		sale.ItemID = line.Item.ID
		sale.ItemTitle = line.Item.Title
		sale.Quantity = line.Quantity
		sale.UnitPrice = line.UnitPrice
		sale.SellerSKU = line.Item.SellerSKU
	}

	sale.DateCreated = s.parseTime(order.DateCreated)
	if closed := s.parseTime(order.DateClosed); closed != nil {
		sale.DateClosed = *closed
	} else if sale.DateCreated != nil {
		// 极少数未闭单的记录退回创建时间，保证 NOT NULL
		sale.DateClosed = *sale.DateCreated
	}

	if raw, err := json.Marshal(order); err == nil {
		sale.RawData = datatypes.JSON(raw)
	}

	return sale
}

// parseTime 解析 ISO-8601 并换算为卖家时区的民用时间（丢弃时区偏移）
func (s *EnrichService) parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Printf("[Enrich] 时间解析失败 %q: %v", value, err)
		return nil
	}
	local := t.In(s.loc)
	civil := time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
	return &civil
}
