package kafka

import (
	"Inkstone/internal/pkg/es"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// PostIndexHandler 消费帖子事件，维护 ES 索引
type PostIndexHandler struct {
	postESRepo es.PostRepo
}

func NewPostIndexHandler(postESRepo es.PostRepo) *PostIndexHandler {
	return &PostIndexHandler{
		postESRepo: postESRepo,
	}
}

func (s *PostIndexHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("post index consumer setup")
	return nil
}

func (s *PostIndexHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("post index consumer cleanup")
	return nil
}

func (s *PostIndexHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-post consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-post process batch error", "err", err)
		return err
	}
	log.Info("topic-post consume claim end")
	return nil
}

func (s *PostIndexHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	event, err := ToPostEvent(msg)
	if err != nil {
		// 消息损坏无法重试，记录后跳过
		log.ErrorContext(ctx, "drop malformed post event", "offset", msg.Offset)
		return nil
	}

	if event.Type == PostEventDeleted {
		if err = s.postESRepo.DeletePost(ctx, event.PostID); err != nil {
			return errors.Wrapf(err, "delete post %s from index", event.PostID)
		}
		return nil
	}

	doc := &es.PostES{
		ID:        event.PostID,
		UserID:    event.UserID,
		Title:     event.Title,
		Slug:      event.Slug,
		Category:  event.Category,
		CreatedAt: time.Unix(event.CreatedAt, 0),
		UpdatedAt: time.Unix(event.UpdatedAt, 0),
	}
	for _, sec := range event.Sections {
		doc.Sections = append(doc.Sections, es.PostSectionES{
			Kind:    sec.Kind,
			Content: sec.Content,
			Order:   sec.Order,
		})
	}

	if err = s.postESRepo.IndexPost(ctx, doc); err != nil {
		return errors.Wrapf(err, "index post %s", event.PostID)
	}
	return nil
}
