package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepTimeout 单次清理的最长执行时间
const sweepTimeout = 30 * time.Second

// SessionSweeper 过期会话清理能力，由 IdentityService 提供
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// Scheduler 后台定时任务
type Scheduler struct {
	cron    *cron.Cron
	sweeper SessionSweeper
	logger  *zap.Logger
}

// NewScheduler 按 cron 表达式注册会话清理任务；spec 为空时不注册任何任务
func NewScheduler(spec string, sweeper SessionSweeper, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		logger:  logger,
	}
	if spec == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, s.sweepSessions); err != nil {
		return nil, fmt.Errorf("注册会话清理任务失败 (spec=%q): %w", spec, err)
	}
	return s, nil
}

// Start 启动调度，不阻塞
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("定时任务已启动", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度并等待正在运行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.sweeper.SweepExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("清理过期会话失败", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("已清理过期会话", zap.Int64("count", n))
	}
}
