package repository

import (
	"context"
	"errors"
	"time"

	"nexus_erp_v1/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ==================== 过滤条件 ====================

// SaleFilter 销售记录过滤条件
type SaleFilter struct {
	MlUserID  int64
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	Keyword   string
	Page      int
	PageSize  int
}

// SaleStats 面板聚合指标
type SaleStats struct {
	TotalSales  int64
	TotalAmount float64
	TotalItems  int64
	AvgTicket   float64
}

// ==================== SaleRepository 销售仓库 ====================

// SaleRepository 销售仓库接口
type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	Save(ctx context.Context, sale *model.Sale) error
	GetByOrderID(ctx context.Context, orderID int64) (*model.Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error)
	Count(ctx context.Context, mlUserID int64) (int64, error)

	// 同步相关
	LastDateClosed(ctx context.Context, mlUserID int64) (*time.Time, error)
	DateRange(ctx context.Context, mlUserID int64) (*time.Time, *time.Time, error)
	FindMissingFee(ctx context.Context, mlUserID int64, since time.Time) ([]model.Sale, error)
	UpdateFee(ctx context.Context, orderID int64, paymentID *int64, fee decimal.Decimal) error

	// 报表状态归一化：paid → Pago，其余 → Cancelado（幂等）
	NormalizeStatuses(ctx context.Context) (int64, error)

	GetStats(ctx context.Context, filter SaleFilter) (*SaleStats, error)
}

type saleRepository struct {
	db *gorm.DB
}

// NewSaleRepository 创建销售仓库
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *saleRepository) Save(ctx context.Context, sale *model.Sale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

func (r *saleRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := r.applyFilter(ctx, filter)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.Order("date_closed DESC").Limit(filter.PageSize).Offset(offset).Find(&sales).Error
	return sales, total, err
}

func (r *saleRepository) Count(ctx context.Context, mlUserID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("ml_user_id = ?", mlUserID).Count(&count).Error
	return count, err
}

// LastDateClosed 增量同步水位线：该账号最新的 date_closed
func (r *saleRepository) LastDateClosed(ctx context.Context, mlUserID int64) (*time.Time, error) {
	return r.closedBoundary(ctx, mlUserID, "date_closed DESC")
}

// DateRange 该账号已存储数据的时间跨度（对账用）
func (r *saleRepository) DateRange(ctx context.Context, mlUserID int64) (*time.Time, *time.Time, error) {
	oldest, err := r.closedBoundary(ctx, mlUserID, "date_closed ASC")
	if err != nil || oldest == nil {
		return nil, nil, err
	}
	newest, err := r.closedBoundary(ctx, mlUserID, "date_closed DESC")
	if err != nil {
		return nil, nil, err
	}
	return oldest, newest, nil
}

// closedBoundary 取排序后的第一行 date_closed
// MAX()/MIN() 聚合在 sqlite 驱动下以 TEXT 返回，无法扫进 time.Time；
// 带类型的单行查询在两种驱动下行为一致
func (r *saleRepository) closedBoundary(ctx context.Context, mlUserID int64, order string) (*time.Time, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Select("date_closed").
		Where("ml_user_id = ?", mlUserID).
		Order(order).
		Take(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale.DateClosed, nil
}

// FindMissingFee 费用回填候选：程序启动日之后 ml_fee 仍为空的订单
func (r *saleRepository) FindMissingFee(ctx context.Context, mlUserID int64, since time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("ml_user_id = ?", mlUserID).
		Where("date_closed >= ?", since).
		Where("ml_fee IS NULL").
		Find(&sales).Error
	return sales, err
}

// UpdateFee 只写费用相关两列，供回填工作池并发调用（不同 order_id 互不冲突）
func (r *saleRepository) UpdateFee(ctx context.Context, orderID int64, paymentID *int64, fee decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"ml_fee":     fee,
			"payment_id": paymentID,
		}).Error
}

// NormalizeStatuses 全库状态归一化
// 两条幂等 UPDATE：大小写不敏感的 paid → Pago；既非 Pago 也非 Cancelado → Cancelado
func (r *saleRepository) NormalizeStatuses(ctx context.Context) (int64, error) {
	var affected int64

	res := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("LOWER(status) = ?", "paid").
		Update("status", model.StatusPago)
	if res.Error != nil {
		return 0, res.Error
	}
	affected += res.RowsAffected

	res = r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("status NOT IN ?", []string{model.StatusPago, model.StatusCancelado}).
		Update("status", model.StatusCancelado)
	if res.Error != nil {
		return affected, res.Error
	}
	affected += res.RowsAffected

	return affected, nil
}

func (r *saleRepository) GetStats(ctx context.Context, filter SaleFilter) (*SaleStats, error) {
	var result struct {
		Count  int64
		Amount float64
		Items  int64
	}
	err := r.applyFilter(ctx, filter).
		Select("COUNT(*) as count, COALESCE(SUM(total_amount), 0) as amount, COALESCE(SUM(quantity), 0) as items").
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	stats := &SaleStats{
		TotalSales:  result.Count,
		TotalAmount: result.Amount,
		TotalItems:  result.Items,
	}
	if result.Count > 0 {
		stats.AvgTicket = result.Amount / float64(result.Count)
	}
	return stats, nil
}

func (r *saleRepository) applyFilter(ctx context.Context, filter SaleFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Sale{})
	if filter.MlUserID > 0 {
		db = db.Where("ml_user_id = ?", filter.MlUserID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		db = db.Where("date_closed >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("date_closed <= ?", filter.EndDate)
	}
	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		db = db.Where("item_title LIKE ? OR buyer_nickname LIKE ? OR seller_sku LIKE ?",
			keyword, keyword, keyword)
	}
	return db
}
