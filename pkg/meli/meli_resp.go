package meli

// ==========================================
// DTO: 用于接收 Mercado Livre API 返回的原始 JSON 数据
// ==========================================

// TokenResp OAuth Token 响应
// POST /oauth/token (grant_type=authorization_code | refresh_token)
type TokenResp struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// ErrorResp ML 通用错误响应
type ErrorResp struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// UserResp 用户信息响应
// GET /users/me
type UserResp struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	SiteID    string `json:"site_id"`
}

// OrderSearchResp 订单搜索响应
// GET /orders/search?seller=&order.status=paid&offset=&limit=&sort=
type OrderSearchResp struct {
	Query   string         `json:"query"`
	Paging  Paging         `json:"paging"`
	Results []OrderSummary `json:"results"`
}

// Paging 分页信息
type Paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// OrderSummary 搜索结果中的订单摘要
// 字段是 OrderDetail 的子集，同样的结构体即可承载
type OrderSummary = OrderDetail

// OrderDetail 订单详情
// GET /orders/{id}
type OrderDetail struct {
	ID              int64       `json:"id"`
	Status          string      `json:"status"`
	StatusDetail    string      `json:"status_detail"`
	DateCreated     string      `json:"date_created"`
	DateClosed      string      `json:"date_closed"`
	DateLastUpdated string      `json:"last_updated"`
	TotalAmount     float64     `json:"total_amount"`
	CurrencyID      string      `json:"currency_id"`
	Buyer           Buyer       `json:"buyer"`
	OrderItems      []OrderItem `json:"order_items"`
	Payments        []Payment   `json:"payments"`
	Shipping        ShippingRef `json:"shipping"`
}

// Buyer 买家信息
type Buyer struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// OrderItem 订单行
type OrderItem struct {
	Item      Item    `json:"item"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Item 订单行中的商品
type Item struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CategoryID string `json:"category_id"`
	SellerSKU  string `json:"seller_sku"`
}

// Payment 支付信息（订单详情内嵌，或 payments 子资源）
// GET /orders/{id}/payments
type Payment struct {
	ID             int64   `json:"id"`
	Status         string  `json:"status"`
	TransactionAmt float64 `json:"transaction_amount"`
	MarketplaceFee float64 `json:"marketplace_fee"`
	DateApproved   string  `json:"date_approved"`
}

// ShippingRef 订单中的物流引用
type ShippingRef struct {
	ID int64 `json:"id"`
}

// ShipmentResp 物流详情
// GET /shipments/{id}
type ShipmentResp struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Substatus       string          `json:"substatus"`
	LogisticType    string          `json:"logistic_type"`
	LastUpdated     string          `json:"last_updated"`
	ShippingOption  ShippingOption  `json:"shipping_option"`
	ReceiverAddress ReceiverAddress `json:"receiver_address"`
}

// ShippingOption 承诺送达窗口
type ShippingOption struct {
	EstimatedDeliveryLimit DateHolder `json:"estimated_delivery_limit"`
	EstimatedDeliveryFinal DateHolder `json:"estimated_delivery_final"`
}

// DateHolder ML 惯用的 {"date": "..."} 包装
type DateHolder struct {
	Date string `json:"date"`
}

// ReceiverAddress 收货地址
type ReceiverAddress struct {
	ReceiverName string     `json:"receiver_name"`
	ZipCode      string     `json:"zip_code"`
	StreetName   string     `json:"street_name"`
	StreetNumber string     `json:"street_number"`
	City         NameHolder `json:"city"`
	State        NameHolder `json:"state"`
	Country      IDHolder   `json:"country"`
}

// NameHolder ML 惯用的 {"name": "..."} 包装
type NameHolder struct {
	Name string `json:"name"`
}

// IDHolder ML 惯用的 {"id": "..."} 包装
type IDHolder struct {
	ID string `json:"id"`
}

// ShipmentSLAResp 配送时效承诺
// GET /shipments/{id}/sla
type ShipmentSLAResp struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	ExpectedDate string `json:"expected_date"`
}

// ItemResp 商品详情（用于历史订单的 SKU 回填）
// GET /items/{id}
type ItemResp struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	CategoryID        string `json:"category_id"`
	SellerSKU         string `json:"seller_sku"`
	SellerCustomField string `json:"seller_custom_field"`
}
