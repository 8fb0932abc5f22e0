package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"
	"nexus_erp_v1/pkg/meli"

	"github.com/shopspring/decimal"
)

// 同步参数
const (
	// 增量水位线的安全重叠，避免边界漏单
	incrementalOverlap = time.Hour

	// 费用回填工作池并发数
	feeBackfillWorkers = 10
)

// ProgramStartDate 运营起始日：费用回填只关心这之后的订单
var ProgramStartDate = time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)

// AccountError 多账号批量同步里单个账号的失败
type AccountError struct {
	MlUserID int64  `json:"ml_user_id"`
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}

// SyncAllResult 多账号批量同步结果
type SyncAllResult struct {
	Total   int            `json:"total"`
	New     int            `json:"new"`
	Updated int            `json:"updated"`
	Errors  []AccountError `json:"errors,omitempty"`
}

// ==================== SyncService ====================

// SyncService 同步编排器
// 三种策略：全量导入、增量导入、历史对账；账号内严格串行，账号间尽力而为
type SyncService struct {
	tokenRepo repository.TokenRepository
	saleRepo  repository.SaleRepository
	enrich    *EnrichService
	upsert    *UpsertService
	client    MeliGateway

	// 历史回溯起点，默认 ProgramStartDate
	historyStart time.Time
}

// NewSyncService 创建同步编排器
func NewSyncService(
	tokenRepo repository.TokenRepository,
	saleRepo repository.SaleRepository,
	enrich *EnrichService,
	upsert *UpsertService,
	client MeliGateway,
) *SyncService {
	return &SyncService{
		tokenRepo:    tokenRepo,
		saleRepo:     saleRepo,
		enrich:       enrich,
		upsert:       upsert,
		client:       client,
		historyStart: ProgramStartDate,
	}
}

// ==================== 增量同步 ====================

// SyncAccount 单账号增量同步
// 零数据账号退化为全量导入；随后执行费用回填；结束后整库状态归一化
func (s *SyncService) SyncAccount(ctx context.Context, mlUserID int64) (*UpsertResult, error) {
	count, err := s.saleRepo.Count(ctx, mlUserID)
	if err != nil {
		return nil, fmt.Errorf("查询账号 %d 存量失败: %w", mlUserID, err)
	}
	if count == 0 {
		n, err := s.FullImport(ctx, mlUserID)
		if err != nil {
			return nil, err
		}
		return &UpsertResult{New: n}, nil
	}

	result := &UpsertResult{}
	runErr := s.runWithState(ctx, mlUserID, func() error {
		last, err := s.saleRepo.LastDateClosed(ctx, mlUserID)
		if err != nil {
			return fmt.Errorf("查询水位线失败: %w", err)
		}
		if last == nil {
			return fmt.Errorf("账号 %d 存量与水位线不一致", mlUserID)
		}

		from := last.Add(-incrementalOverlap)
		filter := meli.SearchFilter{
			Seller:     mlUserID,
			ClosedFrom: &from,
			Sort:       meli.SortDateDesc,
		}

		orders, err := s.client.SearchAllOrders(ctx, mlUserID, filter)
		if err != nil {
			return err
		}

		if err := s.processOrders(ctx, mlUserID, orders, result, false); err != nil {
			return err
		}

		// 第二阶段：费用回填（与主阶段串行，池内按 order_id 并行）
		s.setState(ctx, mlUserID, model.SyncStateFeeBackfill)
		if n, err := s.FeeBackfill(ctx, mlUserID); err != nil {
			log.Printf("[Sync] 账号 %d 费用回填失败: %v", mlUserID, err)
		} else if n > 0 {
			log.Printf("[Sync] 账号 %d 回填费用 %d 笔", mlUserID, n)
		}
		return nil
	})
	if runErr != nil {
		return nil, runErr
	}

	s.normalize(ctx)
	return result, nil
}

// SyncAllAccounts 全账号增量同步
// 单个账号失败只记录，不中断其余账号
func (s *SyncService) SyncAllAccounts(ctx context.Context) (*SyncAllResult, error) {
	tokens, err := s.tokenRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询账号列表失败: %w", err)
	}

	out := &SyncAllResult{}
	for _, token := range tokens {
		result, err := s.SyncAccount(ctx, token.MlUserID)
		if err != nil {
			log.Printf("[Sync] 账号 %d (%s) 同步失败: %v", token.MlUserID, token.Nickname, err)
			out.Errors = append(out.Errors, AccountError{
				MlUserID: token.MlUserID,
				Nickname: token.Nickname,
				Message:  err.Error(),
			})
			continue
		}
		out.New += result.New
		out.Updated += result.Updated
	}
	out.Total = out.New + out.Updated

	log.Printf("[Sync] 批量同步完成：新增 %d，更新 %d，失败账号 %d", out.New, out.Updated, len(out.Errors))
	return out, nil
}

// ==================== 全量导入 ====================

// FullImport 按自然月窗口自旧向新扫全量历史
func (s *SyncService) FullImport(ctx context.Context, mlUserID int64) (int, error) {
	result := &UpsertResult{}
	err := s.runWithState(ctx, mlUserID, func() error {
		for _, w := range monthWindows(s.historyStart, time.Now()) {
			from, to := w.from, w.to
			filter := meli.SearchFilter{
				Seller:     mlUserID,
				ClosedFrom: &from,
				ClosedTo:   &to,
				Sort:       meli.SortDateAsc,
			}

			orders, err := s.client.SearchAllOrders(ctx, mlUserID, filter)
			if err != nil {
				return fmt.Errorf("窗口 %s 拉取失败: %w", from.Format("2006-01"), err)
			}
			if err := s.processOrders(ctx, mlUserID, orders, result, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return result.New, err
	}

	s.normalize(ctx)
	return result.New, nil
}

// ==================== 历史对账 ====================

// ReconcileHistory 重走已存数据的时间范围，捕获上游侧的状态/物流/费用变化
// returnChanges 为真时返回状态变迁清单（审计/导出用）
func (s *SyncService) ReconcileHistory(ctx context.Context, mlUserID int64, returnChanges bool) (*UpsertResult, error) {
	minDate, _, err := s.saleRepo.DateRange(ctx, mlUserID)
	if err != nil {
		return nil, fmt.Errorf("查询账号 %d 数据范围失败: %w", mlUserID, err)
	}
	if minDate == nil {
		// 没有历史可对
		return &UpsertResult{}, nil
	}

	result := &UpsertResult{}
	err = s.runWithState(ctx, mlUserID, func() error {
		for _, w := range monthWindows(*minDate, time.Now()) {
			from, to := w.from, w.to
			filter := meli.SearchFilter{
				Seller:     mlUserID,
				ClosedFrom: &from,
				ClosedTo:   &to,
				Sort:       meli.SortDateAsc,
			}

			orders, err := s.client.SearchAllOrders(ctx, mlUserID, filter)
			if err != nil {
				// 单窗口失败跳过，继续后面的窗口
				log.Printf("[Sync] 对账窗口 %s 拉取失败: %v", from.Format("2006-01"), err)
				continue
			}
			if err := s.processOrders(ctx, mlUserID, orders, result, returnChanges); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.normalize(ctx)
	return result, nil
}

// ==================== 费用回填 ====================

// FeeBackfill 查出运营起始日后 ml_fee 为空的订单，工作池并发补费用
// 不同 order_id 各写各行，幂等，可安全并行
func (s *SyncService) FeeBackfill(ctx context.Context, mlUserID int64) (int, error) {
	sales, err := s.saleRepo.FindMissingFee(ctx, mlUserID, s.historyStart)
	if err != nil {
		return 0, fmt.Errorf("查询缺费用订单失败: %w", err)
	}
	if len(sales) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, feeBackfillWorkers)
	var wg sync.WaitGroup
	var filled int64

	for _, sale := range sales {
		select {
		case <-ctx.Done():
			wg.Wait()
			return int(filled), ctx.Err()
		default:
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(orderID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			paymentID, fee, ok := s.fetchFee(ctx, mlUserID, orderID)
			if !ok {
				return
			}
			if err := s.saleRepo.UpdateFee(ctx, orderID, paymentID, fee); err != nil {
				log.Printf("[Sync] 订单 %d 费用落库失败: %v", orderID, err)
				return
			}
			atomic.AddInt64(&filled, 1)
		}(sale.OrderID)
	}

	wg.Wait()
	return int(filled), nil
}

// fetchFee 单笔费用获取：详情优先，payments 子资源兜底
func (s *SyncService) fetchFee(ctx context.Context, mlUserID, orderID int64) (*int64, decimal.Decimal, bool) {
	var payments []meli.Payment

	if detail, err := s.client.GetOrder(ctx, mlUserID, orderID); err == nil && len(detail.Payments) > 0 {
		payments = detail.Payments
	} else if fetched, err := s.client.GetOrderPayments(ctx, mlUserID, orderID); err == nil {
		payments = fetched
	} else {
		log.Printf("[Sync] 订单 %d 费用获取失败: %v", orderID, err)
		return nil, decimal.Zero, false
	}

	if len(payments) == 0 {
		return nil, decimal.Zero, false
	}
	paymentID := payments[0].ID
	return &paymentID, decimal.NewFromFloat(payments[0].MarketplaceFee), true
}

// ==================== 内部辅助 ====================

// processOrders 账号内严格串行：逐单富化 → 逐单落库
func (s *SyncService) processOrders(ctx context.Context, mlUserID int64, orders []meli.OrderSummary, result *UpsertResult, trackChanges bool) error {
	if len(orders) == 0 {
		return nil
	}

	s.setState(ctx, mlUserID, model.SyncStateEnriching)
	candidates := make([]*model.Sale, 0, len(orders))
	for _, order := range orders {
		candidates = append(candidates, s.enrich.Enrich(ctx, mlUserID, order))
	}

	s.setState(ctx, mlUserID, model.SyncStateUpserting)
	for _, candidate := range candidates {
		if err := s.upsert.Apply(ctx, candidate, result, trackChanges); err != nil {
			// 持久化失败属于账号级错误，交给上层记录并跳到下一账号
			return err
		}
	}
	return nil
}

// runWithState 包住一次账号运行：进入 fetching，出错落 error，正常回 idle
func (s *SyncService) runWithState(ctx context.Context, mlUserID int64, fn func() error) error {
	s.setState(ctx, mlUserID, model.SyncStateFetching)
	if err := fn(); err != nil {
		s.setState(ctx, mlUserID, model.SyncStateError)
		return err
	}
	if err := s.tokenRepo.MarkSynced(ctx, mlUserID); err != nil {
		log.Printf("[Sync] 账号 %d 同步状态落库失败: %v", mlUserID, err)
	}
	return nil
}

func (s *SyncService) setState(ctx context.Context, mlUserID int64, state string) {
	if err := s.tokenRepo.UpdateSyncState(ctx, mlUserID, state); err != nil {
		log.Printf("[Sync] 账号 %d 状态 %s 更新失败: %v", mlUserID, state, err)
	}
}

// normalize 报表状态归一化（整库、幂等）
func (s *SyncService) normalize(ctx context.Context) {
	if _, err := s.saleRepo.NormalizeStatuses(ctx); err != nil {
		log.Printf("[Sync] 状态归一化失败: %v", err)
	}
}

// ==================== 日历月窗口 ====================

type window struct {
	from time.Time
	to   time.Time
}

// monthWindows 把 [from, to] 切成自然月窗口，自旧向新
func monthWindows(from, to time.Time) []window {
	if !from.Before(to) {
		return nil
	}

	var windows []window
	cur := from
	for cur.Before(to) {
		next := time.Date(cur.Year(), cur.Month(), 1, 0, 0, 0, 0, cur.Location()).AddDate(0, 1, 0)
		if next.After(to) {
			next = to
		}
		windows = append(windows, window{from: cur, to: next})
		cur = next
	}
	return windows
}
