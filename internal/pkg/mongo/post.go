package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post 帖子正文，按段落组织
type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    uint64             `bson:"user_id"`
	Title     string             `bson:"title"`
	Slug      string             `bson:"slug"`
	Category  string             `bson:"category"`
	Sections  []PostSection      `bson:"sections"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// PostSection 单个段落，image 的 content 为对象存储 key
type PostSection struct {
	Kind    string `bson:"kind"`
	Content string `bson:"content"`
	Order   int    `bson:"order"`
}
