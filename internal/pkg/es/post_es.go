package es

import "time"

// PostES 写入 ES 的完整文档
type PostES struct {
	ID        string          `json:"id"`
	UserID    uint64          `json:"user_id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Category  string          `json:"category"`
	Sections  []PostSectionES `json:"sections"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PostSectionES 对应 Mapping 中的 sections 对象
type PostSectionES struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}
