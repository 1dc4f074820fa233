package composer

import (
	"Inkstone/internal/pkg/consts"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// UploadPhase 图片段落上传阶段
type UploadPhase int

const (
	// UploadNone 非图片段落或尚未挂载图片
	UploadNone UploadPhase = iota
	// UploadPending 已挂载图片，等待上传
	UploadPending
	// Uploading 直传进行中
	Uploading
	// Uploaded 已落到对象存储
	Uploaded
	// UploadFailed 传输失败，等待手动重试
	UploadFailed
)

// UploadState 单一标签化状态，杜绝"已完成但还有进度条"之类的非法组合
type UploadState struct {
	Phase    UploadPhase
	Progress int    // 仅 Uploading 阶段有意义
	Ref      string // 仅 Uploaded 阶段有意义，对象存储键
	Reason   string // 仅 UploadFailed 阶段有意义
}

// Section 草稿中的一个内容段落
// ID 在追加时铸造，用作异步回调的陈旧性判定，与数组下标无关
type Section struct {
	ID      string
	Kind    string
	Content string

	// 图片段落的本地载荷与预览，上传完成前供界面显示
	Filename string
	MimeType string
	data     []byte
	Preview  string

	Upload UploadState
}

func newSection(kind string) *Section {
	return &Section{
		ID:   uuid.NewString(),
		Kind: kind,
	}
}

// attachImage 挂载本地图片字节并生成 data URL 预览
func (s *Section) attachImage(filename, mimeType string, data []byte) {
	s.Filename = filename
	s.MimeType = mimeType
	s.data = data
	s.Preview = fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	s.Upload = UploadState{Phase: UploadPending}
}

// resolvedContent 提交载荷中该段落的内容
func (s *Section) resolvedContent() string {
	if s.Kind == consts.SectionKindImage && s.Upload.Phase == Uploaded {
		return s.Upload.Ref
	}
	return s.Content
}
