package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"nexus_erp_v1/internal/repository"
	"nexus_erp_v1/internal/service"
)

// ==================== TokenTask Token 保活任务 ====================

// TokenTask 周期性刷新临期 Token
// ML 的 access_token 只有 6 小时；主动刷新让同步路径基本见不到 401
type TokenTask struct {
	tokenRepo   repository.TokenRepository
	authService *service.AuthService
	cron        *cron.Cron

	// 过期前多久算临期
	expiryWindow time.Duration
}

// NewTokenTask 创建 Token 保活任务
func NewTokenTask(tokenRepo repository.TokenRepository, authService *service.AuthService) *TokenTask {
	return &TokenTask{
		tokenRepo:    tokenRepo,
		authService:  authService,
		cron:         cron.New(cron.WithSeconds()),
		expiryWindow: time.Hour,
	}
}

// Start 启动定时任务，每 30 分钟扫一轮
func (t *TokenTask) Start() {
	_, err := t.cron.AddFunc("0 */30 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.refreshExpiring(ctx)
	})
	if err != nil {
		log.Printf("[TokenTask] 注册定时任务失败: %v", err)
		return
	}

	t.cron.Start()
	log.Println("[TokenTask] 已启动，每 30 分钟刷新临期 Token")
}

// Stop 停止定时任务
func (t *TokenTask) Stop() {
	t.cron.Stop()
	log.Println("[TokenTask] 已停止")
}

func (t *TokenTask) refreshExpiring(ctx context.Context) {
	tokens, err := t.tokenRepo.FindExpiring(ctx, t.expiryWindow)
	if err != nil {
		log.Printf("[TokenTask] 查询临期 Token 失败: %v", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	log.Printf("[TokenTask] 发现 %d 个临期 Token", len(tokens))
	refreshed := 0
	for _, token := range tokens {
		if _, err := t.authService.RefreshAccessToken(ctx, token.MlUserID); err != nil {
			// 刷新失败的账号已在 AuthService 里标记失效
			log.Printf("[TokenTask] 刷新失败 ml_user_id=%d: %v", token.MlUserID, err)
			continue
		}
		refreshed++
	}

	log.Printf("[TokenTask] 刷新完成 %d/%d", refreshed, len(tokens))
}
