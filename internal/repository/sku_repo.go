package repository

import (
	"context"
	"errors"

	"nexus_erp_v1/internal/model"

	"gorm.io/gorm"
)

// ==================== SkuRepository SKU 映射仓库 ====================

// SkuRepository SKU 映射仓库接口
// 同步引擎只读；写入来自独立的 SKU 管理界面
type SkuRepository interface {
	LatestByCode(ctx context.Context, skuCode string) (*model.SkuMapping, error)
	List(ctx context.Context) ([]model.SkuMapping, error)
	Create(ctx context.Context, sku *model.SkuMapping) error
	Update(ctx context.Context, sku *model.SkuMapping) error
	Delete(ctx context.Context, id int64) error
}

type skuRepository struct {
	db *gorm.DB
}

// NewSkuRepository 创建 SKU 映射仓库
func NewSkuRepository(db *gorm.DB) SkuRepository {
	return &skuRepository{db: db}
}

// LatestByCode 同一编码取最新版本（created_at 最大者生效）
func (r *skuRepository) LatestByCode(ctx context.Context, skuCode string) (*model.SkuMapping, error) {
	var sku model.SkuMapping
	err := r.db.WithContext(ctx).
		Where("sku_code = ?", skuCode).
		Order("created_at DESC").
		First(&sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) List(ctx context.Context) ([]model.SkuMapping, error) {
	var skus []model.SkuMapping
	err := r.db.WithContext(ctx).Order("sku_code ASC, created_at DESC").Find(&skus).Error
	return skus, err
}

func (r *skuRepository) Create(ctx context.Context, sku *model.SkuMapping) error {
	return r.db.WithContext(ctx).Create(sku).Error
}

func (r *skuRepository) Update(ctx context.Context, sku *model.SkuMapping) error {
	return r.db.WithContext(ctx).Save(sku).Error
}

func (r *skuRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.SkuMapping{}, id).Error
}
