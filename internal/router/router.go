package router

import (
	"net/http"

	"nexus_erp_v1/internal/controller"
	"nexus_erp_v1/internal/middleware"

	"github.com/gin-gonic/gin"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	authCtl *controller.AuthController,
	syncCtl *controller.SyncController,
	saleCtl *controller.SaleController,
	skuCtl *controller.SkuController,
	userCtl *controller.UserController) {

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// 面板登录，无需 JWT
		api.POST("/login", userCtl.Login)

		// auth 授权组：ML 回调由浏览器直接访问，无法带 JWT
		auth := api.Group("/auth")
		{
			// GET /api/auth/login
			auth.GET("/login", authCtl.Login)

			// GET /api/auth/callback
			auth.GET("/callback", authCtl.Callback)

			// POST /api/auth/refresh
			auth.POST("/refresh", middleware.JWTAuth(), authCtl.Refresh)
		}

		// 其余接口全部在 JWT 后面
		protected := api.Group("", middleware.JWTAuth())
		{
			// sync 同步组
			sync := protected.Group("/sync")
			{
				// POST /api/sync/all
				sync.POST("/all",
					middleware.SyncRateLimit(middleware.SyncTypeIncremental, 0),
					syncCtl.SyncAll)

				// POST /api/sync/accounts/:id
				sync.POST("/accounts/:id",
					middleware.SyncRateLimit(middleware.SyncTypeIncremental, 0),
					syncCtl.SyncAccount)

				// POST /api/sync/accounts/:id/full
				sync.POST("/accounts/:id/full",
					middleware.SyncRateLimit(middleware.SyncTypeFull, 0),
					syncCtl.FullImport)

				// POST /api/sync/accounts/:id/reconcile
				sync.POST("/accounts/:id/reconcile",
					middleware.SyncRateLimit(middleware.SyncTypeReconcile, 0),
					syncCtl.Reconcile)
			}

			// 销售与账号（只读）
			protected.GET("/sales", saleCtl.List)
			protected.GET("/sales/stats", saleCtl.Stats)
			protected.GET("/accounts", saleCtl.Accounts)

			// SKU 映射维护
			skus := protected.Group("/skus")
			{
				skus.GET("", skuCtl.List)
				skus.POST("", skuCtl.Create)
				skus.PUT("/:id", skuCtl.Update)
				skus.DELETE("/:id", skuCtl.Delete)
			}
		}
	}
}
