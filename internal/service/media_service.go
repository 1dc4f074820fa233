package service

import (
	"Inkstone/internal/api/config"
	"Inkstone/internal/api/dto"
	"Inkstone/internal/pkg/consts"
	"Inkstone/internal/pkg/minio"
	"Inkstone/internal/pkg/redis"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type MediaService interface {
	PresignUpload(ctx context.Context, userID uint64, presignDTO *dto.PresignDTO) (*dto.PresignResultDTO, error)
	PresignRetrieval(ctx context.Context, retrieveDTO *dto.RetrieveDTO) (*dto.RetrieveResultDTO, error)
	CleanExpiredMedia(ctx context.Context) error
}

type MediaServiceImpl struct{}

func NewMediaService() MediaService {
	return &MediaServiceImpl{}
}

// PresignUpload 为暂存桶中的对象签发预签名上传地址
// 校验文件类型与大小上限后，将临时元数据写入 Redis 供发布时核对
func (m *MediaServiceImpl) PresignUpload(ctx context.Context, userID uint64, presignDTO *dto.PresignDTO) (*dto.PresignResultDTO, error) {
	if !strings.HasPrefix(presignDTO.ContentType, consts.MimePrefixImage) {
		return nil, ErrFileNotSupported
	}
	if _, ok := consts.AcceptedImageMimeTypes[presignDTO.ContentType]; !ok {
		return nil, ErrFileNotSupported
	}

	maxSize := config.Cfg.Media.MaxUploadSize * 1024 * 1024
	if presignDTO.MaxSize > 0 && presignDTO.MaxSize < maxSize {
		maxSize = presignDTO.MaxSize
	}

	objectName := buildTempObjectName(userID, presignDTO.Filename)
	expiry := time.Duration(config.Cfg.MinIO.PresignExpiry) * time.Minute
	target, err := minio.PresignUpload(ctx, objectName, presignDTO.ContentType, expiry)
	if err != nil {
		log.ErrorContext(ctx, "presign upload url failed", "error", err, "object", objectName)
		return nil, UnExpectedError
	}

	meta := &dto.MediaTempMetadata{
		MimeType:  presignDTO.ContentType,
		UserID:    userID,
		MaxSize:   maxSize,
		CreatedAt: time.Now().Unix(),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, UnExpectedError
	}
	if err := redis.HSet(ctx, consts.MediaTempKey, objectName, string(raw)); err != nil {
		log.ErrorContext(ctx, "record temp media metadata failed", "error", err, "object", objectName)
		return nil, UnExpectedError
	}

	return &dto.PresignResultDTO{
		ObjectName:      objectName,
		PresignedPutURL: target.PutURL,
		PresignedGetURL: target.GetURL,
	}, nil
}

// PresignRetrieval 为正式桶对象签发临时读取地址
func (m *MediaServiceImpl) PresignRetrieval(ctx context.Context, retrieveDTO *dto.RetrieveDTO) (*dto.RetrieveResultDTO, error) {
	expiry := time.Duration(config.Cfg.MinIO.PresignExpiry) * time.Minute
	getURL, err := minio.PresignRetrieval(ctx, retrieveDTO.ObjectName, expiry)
	if err != nil {
		log.ErrorContext(ctx, "presign retrieval url failed", "error", err, "object", retrieveDTO.ObjectName)
		return nil, UnExpectedError
	}
	return &dto.RetrieveResultDTO{PresignedGetURL: getURL}, nil
}

// CleanExpiredMedia 清理超过保留期仍未发布的暂存对象
func (m *MediaServiceImpl) CleanExpiredMedia(ctx context.Context) error {
	entries, err := redis.HGetAll(ctx, consts.MediaTempKey)
	if err != nil {
		return err
	}
	retention := time.Duration(config.Cfg.Media.TempRetention) * time.Hour
	deadline := time.Now().Add(-retention).Unix()

	cleaned := 0
	for objectName, raw := range entries {
		var meta dto.MediaTempMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			// 脏数据直接清掉，避免反复扫描
			_ = redis.HDel(ctx, consts.MediaTempKey, objectName)
			continue
		}
		if meta.CreatedAt > deadline {
			continue
		}
		if err := minio.DeleteTempFile(ctx, objectName); err != nil {
			log.WarnContext(ctx, "delete expired temp object failed", "error", err, "object", objectName)
			continue
		}
		if err := redis.HDel(ctx, consts.MediaTempKey, objectName); err != nil {
			log.WarnContext(ctx, "delete temp media metadata failed", "error", err, "object", objectName)
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		log.InfoContext(ctx, "expired temp media cleaned", "count", cleaned)
	}
	return nil
}

func buildTempObjectName(userID uint64, filename string) string {
	sanitized := strings.ReplaceAll(filename, "/", "_")
	return fmt.Sprintf("%s/%d_%s", time.Now().Format("2006-01-02"), userID, sanitized)
}
