package kafka

import (
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const (
	PostEventCreated = "created"
	PostEventUpdated = "updated"
	PostEventDeleted = "deleted"
)

// PostEvent 帖子变更事件，驱动下游索引同步
type PostEvent struct {
	Type      string             `json:"type"`
	PostID    string             `json:"post_id"`
	UserID    uint64             `json:"user_id"`
	Title     string             `json:"title"`
	Slug      string             `json:"slug"`
	Category  string             `json:"category"`
	Sections  []PostEventSection `json:"sections,omitempty"`
	CreatedAt int64              `json:"created_at"`
	UpdatedAt int64              `json:"updated_at"`
}

type PostEventSection struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// ToPostEvent 将kafka消息解析为帖子事件
func ToPostEvent(msg *sarama.ConsumerMessage) (*PostEvent, error) {
	var event PostEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("unmarshal post event error", "err", err)
		return nil, err
	}
	return &event, nil
}
