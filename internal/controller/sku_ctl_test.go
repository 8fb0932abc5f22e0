package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== 测试辅助 ====================

func setupSkuCtlTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.SkuMapping{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

func setupSkuCtlRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())

	ctl := NewSkuController(repository.NewSkuRepository(db))
	r.GET("/api/skus", ctl.List)
	r.POST("/api/skus", ctl.Create)
	r.PUT("/api/skus/:id", ctl.Update)
	r.DELETE("/api/skus/:id", ctl.Delete)
	return r
}

// ==================== 单元测试 ====================

func TestSkuController_CreateAndList(t *testing.T) {
	db := setupSkuCtlTestDB(t)
	r := setupSkuCtlRouter(db)

	body, _ := json.Marshal(map[string]interface{}{
		"sku_code":       "SKU-1",
		"level1":         "Casa",
		"level2":         "Cozinha",
		"custo_unitario": 12.5,
		"units_per_sale": 2,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/skus", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("创建失败 [%d]: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/skus", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		List []struct {
			SkuCode      string `json:"sku_code"`
			UnitCost     string `json:"custo_unitario"`
			UnitsPerSale int    `json:"units_per_sale"`
		} `json:"list"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if len(resp.List) != 1 {
		t.Fatalf("期望 1 条，实际 %d", len(resp.List))
	}
	if resp.List[0].SkuCode != "SKU-1" || resp.List[0].UnitCost != "12.50" {
		t.Errorf("列表内容错误: %+v", resp.List[0])
	}
}

func TestSkuController_CreateRequiresSkuCode(t *testing.T) {
	r := setupSkuCtlRouter(setupSkuCtlTestDB(t))

	body := []byte(`{"level1":"Casa"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/skus", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少 sku_code 应返回 400，实际 %d", w.Code)
	}
}

func TestSkuController_Delete(t *testing.T) {
	db := setupSkuCtlTestDB(t)
	r := setupSkuCtlRouter(db)

	sku := &model.SkuMapping{SkuCode: "SKU-1", UnitCost: decimal.NewFromInt(10), UnitsPerSale: 1}
	db.Create(sku)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/skus/%d", sku.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("删除失败 [%d]: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&model.SkuMapping{}).Count(&count)
	if count != 0 {
		t.Errorf("删除后应为 0 行，实际 %d", count)
	}
}
