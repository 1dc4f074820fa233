package cron

import (
	"Inkstone/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine        *cron.Cron
	mediaCleanJob *job.MediaCleanJob
}

func NewCronManager(mediaCleanJob *job.MediaCleanJob) *Manager {
	return &Manager{
		engine:        cron.New(cron.WithSeconds()),
		mediaCleanJob: mediaCleanJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("@hourly", s.mediaCleanJob); err != nil {
		return err
	}
	return nil
}

// EntryCount 已注册任务数
func (s *Manager) EntryCount() int {
	return len(s.engine.Entries())
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
