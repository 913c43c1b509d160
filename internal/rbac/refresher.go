package rbac

import (
	"context"
	"fmt"
	"time"

	"keeper/pkg/logger"

	"github.com/robfig/cron/v3"
)

const refreshTimeout = 30 * time.Second

// Refresher 按 cron 计划重新加载角色快照，兜底丢失的失效通知
type Refresher struct {
	cron     *cron.Cron
	reloader Reloader
}

func NewRefresher(schedule string, r Reloader) (*Refresher, error) {
	c := cron.New()
	rf := &Refresher{cron: c, reloader: r}
	if _, err := c.AddFunc(schedule, rf.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return rf, nil
}

func (r *Refresher) Start() {
	r.cron.Start()
	logger.GetLogger().Info("RBAC refresher started")
}

// Stop 等待正在执行的刷新完成
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := r.reloader.Load(ctx); err != nil {
		logger.GetLogger().WithError(err).Error("scheduled role snapshot refresh failed")
	}
}
