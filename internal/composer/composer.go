package composer

import (
	"Inkstone/internal/pkg/consts"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
)

// DraftState 草稿状态机
type DraftState int

const (
	// Editing 编辑中，接受结构性修改
	Editing DraftState = iota
	// Submitting 提交中，拒绝一切结构性修改
	Submitting
	// Published 已发布
	Published
	// SubmitFailed 提交失败，草稿原样保留可重试
	SubmitFailed
)

// Composer 草稿聚合根
// 段落序列只由持锁的单一上下文修改，上传完成回调按段落 ID 做陈旧性判定
type Composer struct {
	mu sync.Mutex
	// uploadDone 在任意上传落入终态时广播，Submit 以此等待在途直传收敛
	uploadDone *sync.Cond

	client   *Client
	uploader *Uploader

	userID   uint64
	maxSize  int64
	title    string
	category string
	sections []*Section

	state   DraftState
	failMsg string
	slug    string
}

func NewComposer(client *Client, uploader *Uploader, userID uint64, maxSize int64) *Composer {
	c := &Composer{
		client:   client,
		uploader: uploader,
		userID:   userID,
		maxSize:  maxSize,
		category: consts.CategoryDefault,
		state:    Editing,
	}
	c.uploadDone = sync.NewCond(&c.mu)
	return c
}

// SetTitle 修改标题
func (c *Composer) SetTitle(title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return &ValidationError{Reason: "正在提交，无法修改"}
	}
	c.title = title
	return nil
}

// SetCategory 修改分类
func (c *Composer) SetCategory(category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return &ValidationError{Reason: "正在提交，无法修改"}
	}
	if category == "" {
		category = consts.CategoryDefault
	}
	if _, ok := consts.PostCategories[category]; !ok {
		return &ValidationError{Reason: "分类不存在"}
	}
	c.category = category
	return nil
}

// Append 在末尾追加一个段落，返回铸造的段落 ID
func (c *Composer) Append(kind string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return "", &ValidationError{Reason: "正在提交，无法修改"}
	}
	if _, ok := consts.SectionKinds[kind]; !ok {
		return "", &ValidationError{Reason: "段落类型不支持"}
	}
	sec := newSection(kind)
	c.sections = append(c.sections, sec)
	return sec.ID, nil
}

// Remove 移除下标处的段落
// 该段落在途的上传回调之后会因 ID 失配而被丢弃，不会误改其它段落
func (c *Composer) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return &ValidationError{Reason: "正在提交，无法修改"}
	}
	if index < 0 || index >= len(c.sections) {
		return &ValidationError{Reason: "段落不存在"}
	}
	c.sections = append(c.sections[:index], c.sections[index+1:]...)
	return nil
}

// Update 更新下标处段落的文本内容
func (c *Composer) Update(index int, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return &ValidationError{Reason: "正在提交，无法修改"}
	}
	if index < 0 || index >= len(c.sections) {
		return &ValidationError{Reason: "段落不存在"}
	}
	c.sections[index].Content = content
	return nil
}

// AttachImage 给图片段落挂载本地文件并立即触发直传
// 类型与大小属于本地校验，不发任何网络请求就拒绝
func (c *Composer) AttachImage(ctx context.Context, sectionID, filename, mimeType string, data []byte) error {
	if _, ok := consts.AcceptedImageMimeTypes[mimeType]; !ok {
		return &ValidationError{Reason: "不支持的文件类型"}
	}
	if c.maxSize > 0 && int64(len(data)) > c.maxSize {
		return &ValidationError{Reason: "文件大小超过限制"}
	}

	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return &ValidationError{Reason: "正在提交，无法修改"}
	}
	sec := c.findLocked(sectionID)
	if sec == nil {
		c.mu.Unlock()
		return &ValidationError{Reason: "段落不存在"}
	}
	if sec.Kind != consts.SectionKindImage {
		c.mu.Unlock()
		return &ValidationError{Reason: "该段落不能挂载图片"}
	}
	sec.attachImage(filename, mimeType, data)
	c.mu.Unlock()

	go c.uploadSection(ctx, sectionID)
	return nil
}

// RetryUpload 手动重试失败的图片上传
func (c *Composer) RetryUpload(ctx context.Context, sectionID string) error {
	c.mu.Lock()
	sec := c.findLocked(sectionID)
	if sec == nil {
		c.mu.Unlock()
		return &ValidationError{Reason: "段落不存在"}
	}
	if sec.Upload.Phase != UploadFailed {
		c.mu.Unlock()
		return &ValidationError{Reason: "该段落无需重试"}
	}
	sec.Upload = UploadState{Phase: UploadPending}
	c.mu.Unlock()

	go c.uploadSection(ctx, sectionID)
	return nil
}

// Submit 提交草稿
// 校验失败不发起任何网络请求；失败路径保留全部输入以便重试
func (c *Composer) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return "", &ValidationError{Reason: "正在提交中"}
	}
	if c.state == Published {
		c.mu.Unlock()
		return "", &ValidationError{Reason: "帖子已发布"}
	}
	if strings.TrimSpace(c.title) == "" {
		c.mu.Unlock()
		return "", &ValidationError{Reason: "标题不能为空"}
	}
	if len(c.sections) == 0 {
		c.mu.Unlock()
		return "", &ValidationError{Reason: "请先添加内容段落"}
	}
	for _, sec := range c.sections {
		if sec.Upload.Phase == Uploading {
			c.mu.Unlock()
			return "", &ValidationError{Reason: "请等待图片上传完成"}
		}
		if sec.Kind == consts.SectionKindImage && sec.Upload.Phase == UploadFailed {
			c.mu.Unlock()
			return "", &ValidationError{Reason: "存在上传失败的图片，请重试或移除"}
		}
	}
	c.state = Submitting
	c.failMsg = ""
	pending := c.pendingSectionIDsLocked()
	c.mu.Unlock()

	// 挂载后直传尚未跑完的段落在此兜底补传
	for _, id := range pending {
		if err := c.uploadSectionSync(ctx, id); err != nil {
			c.mu.Lock()
			c.state = SubmitFailed
			c.failMsg = err.Error()
			c.mu.Unlock()
			return "", err
		}
	}

	// 挂载时触发的直传可能在状态机闸门之后才进入 Uploading，
	// 载荷构造前必须等所有图片段落拿到稳定引用
	if err := c.awaitUploads(); err != nil {
		c.mu.Lock()
		c.state = SubmitFailed
		c.failMsg = err.Error()
		c.mu.Unlock()
		return "", err
	}

	c.mu.Lock()
	payload := c.buildPayloadLocked()
	c.mu.Unlock()

	result, err := c.client.SubmitPost(ctx, payload)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = SubmitFailed
		c.failMsg = err.Error()
		return "", err
	}

	c.state = Published
	c.slug = result.Slug
	for _, sec := range c.sections {
		sec.data = nil
		sec.Preview = ""
	}
	log.InfoContext(ctx, "draft published", "slug", result.Slug)
	return result.Slug, nil
}

// State 当前状态与最近一次失败信息
func (c *Composer) State() (DraftState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.failMsg
}

// Slug 发布成功后服务端分配的 slug
func (c *Composer) Slug() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slug
}

// Sections 段落快照，追加顺序即展示顺序
func (c *Composer) Sections() []Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Section, len(c.sections))
	for i, sec := range c.sections {
		out[i] = *sec
	}
	return out
}

// uploadSection 异步直传入口，所有回调先按 ID 查找再落状态
func (c *Composer) uploadSection(ctx context.Context, sectionID string) {
	if err := c.uploadSectionSync(ctx, sectionID); err != nil {
		log.WarnContext(ctx, "section upload failed", "sectionId", sectionID, "err", err)
	}
}

func (c *Composer) uploadSectionSync(ctx context.Context, sectionID string) error {
	c.mu.Lock()
	sec := c.findLocked(sectionID)
	if sec == nil || sec.Upload.Phase != UploadPending {
		// 段落已被移除或状态已被并发推进，静默放弃
		c.mu.Unlock()
		return nil
	}
	filename := sec.Filename
	mimeType := sec.MimeType
	data := sec.data
	sec.Upload = UploadState{Phase: Uploading}
	c.mu.Unlock()

	objectKey := MakeObjectKey(c.userID, filename)
	target, err := c.client.RequestUploadTarget(ctx, objectKey, mimeType, c.maxSize)
	if err != nil {
		c.failUpload(sectionID, err.Error())
		return err
	}

	err = c.uploader.Upload(ctx, target.PutURL, data, mimeType, func(percent int) {
		c.mu.Lock()
		defer c.mu.Unlock()
		cur := c.findLocked(sectionID)
		if cur == nil || cur.Upload.Phase != Uploading {
			return
		}
		if percent == ProgressIndeterminate {
			cur.Upload.Progress = ProgressIndeterminate
			return
		}
		if percent > cur.Upload.Progress {
			cur.Upload.Progress = percent
		}
	})
	if err != nil {
		c.failUpload(sectionID, err.Error())
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.findLocked(sectionID)
	if cur == nil || cur.Upload.Phase != Uploading {
		return nil
	}
	cur.Upload = UploadState{Phase: Uploaded, Progress: 100, Ref: target.ObjectKey}
	c.uploadDone.Broadcast()
	return nil
}

func (c *Composer) failUpload(sectionID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sec := c.findLocked(sectionID)
	if sec == nil || sec.Upload.Phase != Uploading {
		return
	}
	sec.Upload = UploadState{Phase: UploadFailed, Progress: ProgressIndeterminate, Reason: reason}
	c.uploadDone.Broadcast()
}

// awaitUploads 等待所有在途上传落入终态，存在失败段落则整体判失败
func (c *Composer) awaitUploads() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.hasUploadingLocked() {
		c.uploadDone.Wait()
	}
	for _, sec := range c.sections {
		if sec.Kind == consts.SectionKindImage && sec.Upload.Phase == UploadFailed {
			return &TransferError{Reason: sec.Upload.Reason}
		}
	}
	return nil
}

func (c *Composer) hasUploadingLocked() bool {
	for _, sec := range c.sections {
		if sec.Upload.Phase == Uploading {
			return true
		}
	}
	return false
}

func (c *Composer) findLocked(sectionID string) *Section {
	for _, sec := range c.sections {
		if sec.ID == sectionID {
			return sec
		}
	}
	return nil
}

func (c *Composer) pendingSectionIDsLocked() []string {
	var ids []string
	for _, sec := range c.sections {
		if sec.Kind == consts.SectionKindImage && sec.Upload.Phase == UploadPending {
			ids = append(ids, sec.ID)
		}
	}
	return ids
}

// buildPayloadLocked 组装提交载荷，order 按当前位置重新编号
func (c *Composer) buildPayloadLocked() *SubmitPayload {
	payload := &SubmitPayload{
		Title:    c.title,
		Category: c.category,
		Sections: make([]SubmitSection, len(c.sections)),
	}
	for i, sec := range c.sections {
		payload.Sections[i] = SubmitSection{
			Kind:    sec.Kind,
			Content: sec.resolvedContent(),
			Order:   i,
		}
	}
	return payload
}

// Describe 供 CLI 打印的草稿概览
func (c *Composer) Describe() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "title=%q category=%s sections=%d\n", c.title, c.category, len(c.sections))
	for i, sec := range c.sections {
		fmt.Fprintf(&b, "  [%d] kind=%s phase=%d progress=%d\n", i, sec.Kind, sec.Upload.Phase, sec.Upload.Progress)
	}
	return b.String()
}
