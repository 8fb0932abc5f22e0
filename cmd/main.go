package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexus_erp_v1/internal/controller"
	"nexus_erp_v1/internal/middleware"
	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"
	"nexus_erp_v1/internal/router"
	"nexus_erp_v1/internal/service"
	"nexus_erp_v1/internal/task"
	"nexus_erp_v1/pkg/database"
	"nexus_erp_v1/pkg/meli"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// .env 可选，生产环境直接用环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.AuthCtl, deps.SyncCtl, deps.SaleCtl, deps.SkuCtl, deps.UserCtl)

	// 5. 启动服务
	startServer(r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB *gorm.DB

	TokenRepo repository.TokenRepository
	SaleRepo  repository.SaleRepository
	SkuRepo   repository.SkuRepository
	UserRepo  repository.UserRepository

	MeliClient *meli.Client

	AuthSvc *service.AuthService
	SyncSvc *service.SyncService
	UserSvc *service.UserService

	AuthCtl *controller.AuthController
	SyncCtl *controller.SyncController
	SaleCtl *controller.SaleController
	SkuCtl  *controller.SkuController
	UserCtl *controller.UserController

	SyncTask  *task.SyncTask
	TokenTask *task.TokenTask
}

// ==================== 初始化 ====================

// initDatabase 连接数据库并建表
func initDatabase() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("缺少环境变量 DATABASE_URL")
	}

	return database.InitDB(dsn,
		&model.AccountToken{},
		&model.Sale{},
		&model.SkuMapping{},
		&model.SysUser{},
	)
}

// initDependencies 组装仓库、服务、控制器
func initDependencies(db *gorm.DB) *Dependencies {
	clientID := os.Getenv("ML_CLIENT_ID")
	clientSecret := os.Getenv("ML_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("缺少环境变量 ML_CLIENT_ID / ML_CLIENT_SECRET")
	}

	// JWT 配置
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	}

	deps := &Dependencies{DB: db}

	// Repositories
	deps.TokenRepo = repository.NewTokenRepository(db)
	deps.SaleRepo = repository.NewSaleRepository(db)
	deps.SkuRepo = repository.NewSkuRepository(db)
	deps.UserRepo = repository.NewUserRepository(db)

	// ML 客户端与授权服务互相依赖：先建客户端，再回填 TokenSource
	deps.MeliClient = meli.NewClient(meli.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  getEnv("ML_REDIRECT_URI", "http://localhost:8080/api/auth/callback"),
	}, nil)

	deps.AuthSvc = service.NewAuthService(deps.TokenRepo, deps.MeliClient)
	deps.MeliClient.SetTokenSource(deps.AuthSvc)

	enrichSvc := service.NewEnrichService(deps.MeliClient, deps.SkuRepo)
	upsertSvc := service.NewUpsertService(deps.SaleRepo)
	deps.SyncSvc = service.NewSyncService(deps.TokenRepo, deps.SaleRepo, enrichSvc, upsertSvc, deps.MeliClient)
	deps.UserSvc = service.NewUserService(deps.UserRepo)

	// 默认管理员
	if err := deps.UserSvc.EnsureDefaultAdmin(context.Background(),
		getEnv("ADMIN_USERNAME", "admin"),
		getEnv("ADMIN_PASSWORD", "admin123"),
	); err != nil {
		log.Printf("创建默认管理员失败: %v", err)
	}

	// Controllers
	deps.AuthCtl = controller.NewAuthController(deps.AuthSvc, deps.SyncSvc)
	deps.SyncCtl = controller.NewSyncController(deps.SyncSvc)
	deps.SaleCtl = controller.NewSaleController(deps.SaleRepo, deps.TokenRepo)
	deps.SkuCtl = controller.NewSkuController(deps.SkuRepo)
	deps.UserCtl = controller.NewUserController(deps.UserSvc)

	return deps
}

// initTasks 启动定时任务
func initTasks(deps *Dependencies) {
	if getEnv("SYNC_TASK_ENABLED", "true") == "true" {
		deps.SyncTask = task.NewSyncTask(deps.SyncSvc)
		if spec := os.Getenv("SYNC_TASK_SPEC"); spec != "" {
			deps.SyncTask.SetSpec(spec)
		}
		deps.SyncTask.Start()
	}

	if getEnv("TOKEN_TASK_ENABLED", "true") == "true" {
		deps.TokenTask = task.NewTokenTask(deps.TokenRepo, deps.AuthSvc)
		deps.TokenTask.Start()
	}

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务并优雅关闭
func startServer(r *gin.Engine, deps *Dependencies) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	if deps.SyncTask != nil {
		deps.SyncTask.Stop()
	}
	if deps.TokenTask != nil {
		deps.TokenTask.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
