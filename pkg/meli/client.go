package meli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// 业务常量
const (
	DefaultBaseURL = "https://api.mercadolibre.com"
	DefaultAuthURL = "https://auth.mercadolivre.com.br/authorization"

	// PageSize 订单搜索固定页大小
	PageSize = 50
)

// 排序方向
const (
	SortDateAsc  = "date_asc"
	SortDateDesc = "date_desc"
)

// ErrAuthExpired refresh_token 被拒绝，需要人工重新授权
// 自动重试到此为止，调用方不应继续循环
var ErrAuthExpired = errors.New("meli: refresh token rejected, manual re-authorization required")

// TokenSource 提供某个账号当前可用的 access_token
// 实现方负责持久化；RefreshAccessToken 在收到 401 时被调用且最多一次
type TokenSource interface {
	AccessToken(ctx context.Context, mlUserID int64) (string, error)
	RefreshAccessToken(ctx context.Context, mlUserID int64) (string, error)
}

// ==================== Client ====================

// Client Mercado Livre API 客户端
type Client struct {
	http         *resty.Client
	baseURL      string
	authURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	tokens       TokenSource
}

// Config 客户端配置
type Config struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration
}

// NewClient 创建客户端
// tokens 可以为 nil（仅使用 OAuth 公共端点时）
func NewClient(cfg Config, tokens TokenSource) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "Nexus-ERP/1.0")

	return &Client{
		http:         client,
		baseURL:      cfg.BaseURL,
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		tokens:       tokens,
	}
}

// SetTokenSource 注入 TokenSource（解决构造顺序上的循环依赖）
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// ==================== OAuth ====================

// BuildAuthURL 生成授权跳转链接
func (c *Client) BuildAuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("state", state)
	return c.authURL + "?" + q.Encode()
}

// ExchangeCode 用授权码换取 Token 对
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResp, error) {
	var out TokenResp
	var apiErr ErrorResp

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "authorization_code",
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"code":          code,
			"redirect_uri":  c.redirectURI,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post(c.baseURL + "/oauth/token")
	if err != nil {
		return nil, fmt.Errorf("exchange code network error: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("exchange code denied [%d]: %s", resp.StatusCode(), apiErr.Message)
	}
	return &out, nil
}

// RefreshToken 用 refresh_token 换取新 Token 对
// 4xx 视为授权失效（revoked/malformed），映射为 ErrAuthExpired
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResp, error) {
	var out TokenResp
	var apiErr ErrorResp

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"refresh_token": refreshToken,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post(c.baseURL + "/oauth/token")
	if err != nil {
		return nil, fmt.Errorf("refresh token network error: %w", err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, fmt.Errorf("%w: [%d] %s", ErrAuthExpired, resp.StatusCode(), apiErr.Message)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("refresh token failed [%d]: %s", resp.StatusCode(), apiErr.Message)
	}
	return &out, nil
}

// GetUser 获取当前授权用户信息（昵称展示用）
func (c *Client) GetUser(ctx context.Context, mlUserID int64) (*UserResp, error) {
	var out UserResp
	if err := c.getJSON(ctx, mlUserID, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== 订单搜索 ====================

// SearchFilter 订单搜索过滤条件
// ClosedFrom/ClosedTo 与 UpdatedFrom/UpdatedTo 互斥，单次调用只能用一组
type SearchFilter struct {
	Seller      int64
	Status      string // 默认 paid
	ClosedFrom  *time.Time
	ClosedTo    *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Sort        string // date_asc / date_desc
}

func (f SearchFilter) query(offset int) map[string]string {
	q := map[string]string{
		"seller": strconv.FormatInt(f.Seller, 10),
		"offset": strconv.Itoa(offset),
		"limit":  strconv.Itoa(PageSize),
	}
	status := f.Status
	if status == "" {
		status = "paid"
	}
	q["order.status"] = status
	if f.Sort != "" {
		q["sort"] = f.Sort
	}
	if f.ClosedFrom != nil {
		q["order.date_closed.from"] = f.ClosedFrom.Format(time.RFC3339)
	}
	if f.ClosedTo != nil {
		q["order.date_closed.to"] = f.ClosedTo.Format(time.RFC3339)
	}
	if f.UpdatedFrom != nil {
		q["order.date_last_updated.from"] = f.UpdatedFrom.Format(time.RFC3339)
	}
	if f.UpdatedTo != nil {
		q["order.date_last_updated.to"] = f.UpdatedTo.Format(time.RFC3339)
	}
	return q
}

// SearchOrdersPage 请求单页订单
func (c *Client) SearchOrdersPage(ctx context.Context, mlUserID int64, f SearchFilter, offset int) (*OrderSearchResp, error) {
	var out OrderSearchResp
	if err := c.getJSON(ctx, mlUserID, "/orders/search", f.query(offset), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchAllOrders 透明分页拉取全部命中订单
// 终止条件：某页数量 < PageSize，或上游返回空页
func (c *Client) SearchAllOrders(ctx context.Context, mlUserID int64, f SearchFilter) ([]OrderSummary, error) {
	var all []OrderSummary
	offset := 0

	for {
		page, err := c.SearchOrdersPage(ctx, mlUserID, f, offset)
		if err != nil {
			return all, err
		}
		if len(page.Results) == 0 {
			break
		}
		all = append(all, page.Results...)
		if len(page.Results) < PageSize {
			break
		}
		offset += PageSize
	}

	return all, nil
}

// ==================== 详情端点 ====================

// GetOrder 获取订单详情
func (c *Client) GetOrder(ctx context.Context, mlUserID, orderID int64) (*OrderDetail, error) {
	var out OrderDetail
	path := fmt.Sprintf("/orders/%d", orderID)
	if err := c.getJSON(ctx, mlUserID, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrderPayments 获取订单支付列表（详情缺失 payments 时的兜底）
func (c *Client) GetOrderPayments(ctx context.Context, mlUserID, orderID int64) ([]Payment, error) {
	var out []Payment
	path := fmt.Sprintf("/orders/%d/payments", orderID)
	if err := c.getJSON(ctx, mlUserID, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetShipment 获取物流详情
func (c *Client) GetShipment(ctx context.Context, mlUserID, shipmentID int64) (*ShipmentResp, error) {
	var out ShipmentResp
	path := fmt.Sprintf("/shipments/%d", shipmentID)
	if err := c.getJSON(ctx, mlUserID, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetShipmentSLA 获取配送时效承诺
func (c *Client) GetShipmentSLA(ctx context.Context, mlUserID, shipmentID int64) (*ShipmentSLAResp, error) {
	var out ShipmentSLAResp
	path := fmt.Sprintf("/shipments/%d/sla", shipmentID)
	if err := c.getJSON(ctx, mlUserID, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetItem 获取商品详情
func (c *Client) GetItem(ctx context.Context, mlUserID int64, itemID string) (*ItemResp, error) {
	var out ItemResp
	if err := c.getJSON(ctx, mlUserID, "/items/"+itemID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ==================== 认证请求 + 重试策略 ====================

// getJSON 发送带鉴权的 GET 请求
// 重试契约：收到 401 时刷新一次 Token 并重发一次，第二次 401 直接失败
func (c *Client) getJSON(ctx context.Context, mlUserID int64, path string, query map[string]string, out interface{}) error {
	if c.tokens == nil {
		return errors.New("meli: no token source configured")
	}

	token, err := c.tokens.AccessToken(ctx, mlUserID)
	if err != nil {
		return err
	}

	resp, err := c.doGet(ctx, token, path, query, out)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		// 唯一的一次刷新重试
		token, err = c.tokens.RefreshAccessToken(ctx, mlUserID)
		if err != nil {
			return err
		}
		resp, err = c.doGet(ctx, token, path, query, out)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode() >= 400 {
		return fmt.Errorf("ML API 错误 [%d] %s: %s", resp.StatusCode(), path, resp.String())
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, token, path string, query map[string]string, out interface{}) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(out)
	if query != nil {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("request %s network error: %w", path, err)
	}
	return resp, nil
}
