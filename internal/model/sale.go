package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ==================== 订单状态常量 ====================

// ML 原始状态（上游词汇表的子集，其余值原样存储）
const (
	MeliStatusPaid      = "paid"      // 已支付
	MeliStatusCancelled = "cancelled" // 已取消
	MeliStatusRefunded  = "refunded"  // 已退款
)

// 归一化后的报表状态：整库只保留两种
const (
	StatusPago      = "Pago"      // 任何大小写的 paid
	StatusCancelado = "Cancelado" // 其余全部
)

// NormalizeStatus 把 ML 原始状态映射为报表状态，幂等
// 与仓库层 NormalizeStatuses 的两条 UPDATE 语义保持一致
func NormalizeStatus(status string) string {
	if strings.EqualFold(status, MeliStatusPaid) || status == StatusPago {
		return StatusPago
	}
	return StatusCancelado
}

// ==================== Sale 销售记录 ====================

// Sale 一条 ML 订单的反范式化销售记录
// order_id 全库唯一；除标识字段外，任何富化/对账轮次都可以覆盖其余字段
type Sale struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	OrderID  int64 `gorm:"uniqueIndex;not null"`
	MlUserID int64 `gorm:"index;not null"`

	// 买家信息
	BuyerID        int64
	BuyerNickname  string `gorm:"size:100"`
	BuyerEmail     string `gorm:"size:255"`
	BuyerFirstName string `gorm:"size:100"`
	BuyerLastName  string `gorm:"size:100"`

	// 商品与金额
	ItemID      string `gorm:"size:32;index"`
	ItemTitle   string `gorm:"size:500"`
	Quantity    int
	UnitPrice   float64
	TotalAmount float64

	// 状态（归一化前存 ML 原始值）
	Status       string `gorm:"size:32;index"`
	StatusDetail string `gorm:"size:64"`

	// 时间（已转换为 America/Sao_Paulo 民用时间，不带时区）
	DateCreated *time.Time
	DateClosed  time.Time `gorm:"not null;index"`

	// 物流
	ShippingID        int64  `gorm:"index"`
	ShippingStatus    string `gorm:"size:32"`
	ShippingSubstatus string `gorm:"size:32"`
	LogisticType      string `gorm:"size:32"`
	DeliveryLimit     *time.Time
	DeliveryFinal     *time.Time
	SlaExpectedDate   *time.Time
	ShippingUpdatedAt *time.Time
	ReceiverName      string `gorm:"size:255"`

	// 收货地址
	City         string `gorm:"size:100"`
	State        string `gorm:"size:100"`
	Country      string `gorm:"size:10"`
	ZipCode      string `gorm:"size:20"`
	StreetName   string `gorm:"size:255"`
	StreetNumber string `gorm:"size:20"`

	// SKU 维度（来自本地 SKU 映射）
	SellerSKU   string `gorm:"column:seller_sku;size:100;index"`
	QuantitySKU *int   `gorm:"column:quantity_sku"`
	UnitCost    decimal.NullDecimal `gorm:"column:custo_unitario;type:numeric(10,2)"`
	Level1      string `gorm:"size:100"`
	Level2      string `gorm:"size:100"`

	// 费用
	PaymentID *int64
	MlFee     decimal.NullDecimal `gorm:"column:ml_fee;type:numeric(10,2)"`
	Ads       decimal.NullDecimal `gorm:"type:numeric(10,2)"`

	// ML 原始数据（PostgreSQL JSONB）
	RawData datatypes.JSON `gorm:"type:jsonb"`

	// 审计字段
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (*Sale) TableName() string {
	return "sales"
}

// HasFee ml_fee 是否已回填
func (s *Sale) HasFee() bool {
	return s.MlFee.Valid
}
