package dto

// PresignDTO 预签名请求参数
type PresignDTO struct {
	Filename    string `form:"filename" binding:"required"`
	ContentType string `form:"contentType" binding:"required"`
	MaxSize     int64  `form:"maxSize"`
}

// PresignResultDTO 预签名结果，字段名沿用前端既有契约
type PresignResultDTO struct {
	ObjectName      string `json:"objectName"`
	PresignedPutURL string `json:"presignedPutUrl"`
	PresignedGetURL string `json:"presignedGetUrl"`
}

// RetrieveDTO 读取地址请求参数
type RetrieveDTO struct {
	ObjectName string `form:"objectName" binding:"required"`
}

// RetrieveResultDTO 读取地址结果
type RetrieveResultDTO struct {
	PresignedGetURL string `json:"presignedGetUrl"`
}

// MediaTempMetadata 暂存对象的元数据，挂在 Redis 哈希里
type MediaTempMetadata struct {
	MimeType  string `json:"mime_type"`
	UserID    uint64 `json:"user_id"`
	MaxSize   int64  `json:"max_size"`
	CreatedAt int64  `json:"created_at"`
}
