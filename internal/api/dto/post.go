package dto

// SectionDTO 段落 - 提交
type SectionDTO struct {
	Kind    string `json:"kind" binding:"required" validate:"oneof=text image video embed"`
	Content string `json:"content" binding:"required" validate:"min=1"`
	Order   int    `json:"order"`
}

// PostBaseDTO 帖子 - 新增或修改
type PostBaseDTO struct {
	Title    string       `json:"title" binding:"required" validate:"min=1,max=255"`
	Category string       `json:"category" validate:"omitempty,max=64"`
	Sections []SectionDTO `json:"sections" binding:"required" validate:"min=1,max=50,dive"`
}

// PostDTO 帖子
type PostDTO struct {
	// Post
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Slug      string       `json:"slug"`
	Category  string       `json:"category"`
	Sections  []SectionDTO `json:"sections"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`

	// User
	UserID    uint64 `json:"user_id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// PostListDTO 列表查询参数
type PostListDTO struct {
	UserID     uint64 `form:"userId"`
	Category   string `form:"category"`
	Slug       string `form:"slug"`
	PostID     string `form:"postId"`
	SearchTerm string `form:"searchTerm"`
	StartIndex int    `form:"startIndex"`
	Limit      int    `form:"limit"`
	Order      string `form:"order"`
}

// PostListResultDTO 列表结果与统计
type PostListResultDTO struct {
	Posts          []*PostDTO `json:"posts"`
	TotalPosts     int64      `json:"totalPosts"`
	LastMonthPosts int64      `json:"lastMonthPosts"`
}
