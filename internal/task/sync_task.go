package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"nexus_erp_v1/internal/service"
)

// ==================== SyncTask 增量同步任务 ====================

// SyncTask 周期性全账号增量同步
// 前端的手动同步按钮仍然可用；定时任务只是兜底，保证没人看面板时数据照样新鲜
type SyncTask struct {
	syncService *service.SyncService
	cron        *cron.Cron
	spec        string
}

// NewSyncTask 创建增量同步任务，默认每 15 分钟
func NewSyncTask(syncService *service.SyncService) *SyncTask {
	return &SyncTask{
		syncService: syncService,
		cron:        cron.New(cron.WithSeconds()),
		spec:        "0 */15 * * * *",
	}
}

// SetSpec 覆盖调度表达式
func (t *SyncTask) SetSpec(spec string) {
	t.spec = spec
}

// Start 启动定时任务
func (t *SyncTask) Start() {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		t.run(ctx)
	})
	if err != nil {
		log.Printf("[SyncTask] 注册定时任务失败: %v", err)
		return
	}

	t.cron.Start()
	log.Printf("[SyncTask] 已启动，调度: %s", t.spec)
}

// Stop 停止定时任务
func (t *SyncTask) Stop() {
	t.cron.Stop()
	log.Println("[SyncTask] 已停止")
}

func (t *SyncTask) run(ctx context.Context) {
	start := time.Now()
	log.Println("[SyncTask] 开始全账号增量同步...")

	result, err := t.syncService.SyncAllAccounts(ctx)
	if err != nil {
		log.Printf("[SyncTask] 同步失败: %v", err)
		return
	}

	log.Printf("[SyncTask] 完成: 账号 %d 个, 新增 %d, 更新 %d, 失败 %d, 耗时 %v",
		result.Total, result.New, result.Updated, len(result.Errors), time.Since(start).Round(time.Second))
	for _, e := range result.Errors {
		log.Printf("[SyncTask] 账号 %d(%s) 失败: %s", e.MlUserID, e.Nickname, e.Message)
	}
}
