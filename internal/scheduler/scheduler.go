package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/logger"
)

// sweeper 清理残留临时文件（便于测试注入 mock）
type sweeper interface {
	Sweep(maxAge time.Duration, now time.Time) (int, error)
}

// Scheduler 定时清理进程异常退出后残留的上传临时文件
type Scheduler struct {
	cron    *cron.Cron
	store   sweeper
	config  *config.Upload
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

func NewScheduler(store sweeper, cfg *config.Upload) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		store:  store,
		config: cfg,
	}
}

// Enabled JanitorCron 为空或 MaxAgeMinutes 为 0 时不启动
func (s *Scheduler) Enabled() bool {
	return s.config.JanitorCron != "" && s.config.MaxAgeMinutes > 0
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	if !s.Enabled() {
		logger.Infof("[Scheduler] 未启用临时文件清理")
		return nil
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	// 注册清理任务
	_, err := s.cron.AddFunc(s.config.JanitorCron, s.runSweep)
	if err != nil {
		return fmt.Errorf("注册临时文件清理任务失败: %w", err)
	}

	s.cron.Start()
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	logger.Infof("[Scheduler] 调度器已启动，临时文件清理任务: %s", s.config.JanitorCron)

	// 启动时先清理一次上次运行的残留
	go s.runSweep()

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	started := s.started
	s.mu.Unlock()

	if !started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Infof("[Scheduler] 调度器已停止")
}

// runSweep 执行一次清理（cron 触发）
func (s *Scheduler) runSweep() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx != nil {
		select {
		case <-ctx.Done():
			logger.Infof("[Scheduler] 任务已取消，退出")
			return
		default:
		}
	}

	maxAge := time.Duration(s.config.MaxAgeMinutes) * time.Minute
	removed, err := s.store.Sweep(maxAge, time.Now())
	if err != nil {
		logger.Errorf("[Scheduler] 清理临时文件失败: %v", err)
		return
	}
	if removed > 0 {
		logger.Infof("[Scheduler] 已清理 %d 个残留临时文件", removed)
	}
}
