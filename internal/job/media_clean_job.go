package job

import (
	"Inkstone/internal/service"
	"context"
	log "log/slog"
)

// MediaCleanJob 定期回收过期未发布的暂存媒体
type MediaCleanJob struct {
	mediaSvc service.MediaService
}

func NewMediaCleanJob(mediaSvc service.MediaService) *MediaCleanJob {
	return &MediaCleanJob{
		mediaSvc: mediaSvc,
	}
}

func (s *MediaCleanJob) Run() {
	ctx := context.Background()
	log.Info("start media cleanup job")

	if err := s.mediaSvc.CleanExpiredMedia(ctx); err != nil {
		log.Error("media cleanup job failed", "err", err)
		return
	}
}
