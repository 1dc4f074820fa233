package composer

import (
	"Inkstone/internal/pkg/consts"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBackend 模拟预签名、直传与提交三个端点
type testBackend struct {
	server *httptest.Server

	requests   int64 // 所有进入的请求计数
	putStarted chan struct{}
	putRelease chan struct{}
	putStatus  int

	submitStatus  int
	submitMessage string
	lastPayload   *SubmitPayload
}

func newTestBackend() *testBackend {
	b := &testBackend{
		putStatus:    http.StatusOK,
		submitStatus: 201,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/media/presign", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&b.requests, 1)
		objectName := r.URL.Query().Get("filename")
		writeEnvelope(w, 200, map[string]string{
			"objectName":      objectName,
			"presignedPutUrl": b.server.URL + "/upload/" + objectName,
			"presignedGetUrl": b.server.URL + "/get/" + objectName,
		})
	})
	mux.HandleFunc("/upload/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&b.requests, 1)
		if b.putStarted != nil {
			close(b.putStarted)
			b.putStarted = nil
		}
		if b.putRelease != nil {
			<-b.putRelease
		}
		w.WriteHeader(b.putStatus)
	})
	mux.HandleFunc("/api/media/retrieve", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&b.requests, 1)
		objectName := r.URL.Query().Get("objectName")
		writeEnvelope(w, 200, map[string]string{
			"presignedGetUrl": b.server.URL + "/get/" + objectName,
		})
	})
	mux.HandleFunc("/api/post/create", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&b.requests, 1)
		var payload SubmitPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		b.lastPayload = &payload
		if b.submitStatus != 201 {
			writeEnvelope(w, b.submitStatus, nil)
			return
		}
		writeEnvelope(w, 201, map[string]string{"id": "1", "slug": "some-slug"})
	})

	b.server = httptest.NewServer(mux)
	return b
}

func writeEnvelope(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	message := "success"
	if code >= 400 {
		w.WriteHeader(code)
		message = "标题已被占用"
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func (b *testBackend) Requests() int64 {
	return atomic.LoadInt64(&b.requests)
}

func (b *testBackend) Close() {
	b.server.Close()
}

func newTestComposer(b *testBackend) *Composer {
	client := NewClient(b.server.URL, "test-token")
	return NewComposer(client, NewUploader(), 42, 10*1024*1024)
}

func waitPhase(t *testing.T, c *Composer, sectionID string, phase UploadPhase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, sec := range c.Sections() {
			if sec.ID == sectionID && sec.Upload.Phase == phase {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("section %s never reached phase %d", sectionID, phase)
}

func TestAppendRemoveKeepsSurvivorOrder(t *testing.T) {
	b := newTestBackend()
	defer b.Close()
	c := newTestComposer(b)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := c.Append(consts.SectionKindText)
		require.NoError(t, err)
		require.NoError(t, c.Update(i, fmt.Sprintf("section-%d", i)))
		ids = append(ids, id)
	}

	// 移除 1 和（原来的）3
	require.NoError(t, c.Remove(1))
	require.NoError(t, c.Remove(2))

	sections := c.Sections()
	require.Len(t, sections, 3)
	assert.Equal(t, []string{ids[0], ids[2], ids[4]},
		[]string{sections[0].ID, sections[1].ID, sections[2].ID})
	assert.Equal(t, "section-0", sections[0].Content)
	assert.Equal(t, "section-2", sections[1].Content)
	assert.Equal(t, "section-4", sections[2].Content)
}

func TestSubmitEmptyTitleFailsWithoutNetwork(t *testing.T) {
	b := newTestBackend()
	defer b.Close()
	c := newTestComposer(b)

	_, err := c.Append(consts.SectionKindText)
	require.NoError(t, err)
	require.NoError(t, c.Update(0, "hello"))

	_, err = c.Submit(context.Background())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "标题不能为空", ve.Reason)
	assert.EqualValues(t, 0, b.Requests())

	state, _ := c.State()
	assert.Equal(t, Editing, state)
}

func TestSubmitNoSectionsFailsWithDistinctMessage(t *testing.T) {
	b := newTestBackend()
	defer b.Close()
	c := newTestComposer(b)

	require.NoError(t, c.SetTitle("Hello"))

	_, err := c.Submit(context.Background())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "请先添加内容段落", ve.Reason)
	assert.EqualValues(t, 0, b.Requests())
}

func TestSubmitWhileUploadingFailsFast(t *testing.T) {
	b := newTestBackend()
	b.putStarted = make(chan struct{})
	b.putRelease = make(chan struct{})
	defer b.Close()
	c := newTestComposer(b)

	require.NoError(t, c.SetTitle("Hello"))
	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)

	started := b.putStarted
	require.NoError(t, c.AttachImage(context.Background(), id, "a.png", "image/png", make([]byte, 1024)))
	<-started

	before := b.Requests()
	_, err = c.Submit(context.Background())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "请等待图片上传完成", ve.Reason)
	assert.Equal(t, before, b.Requests())

	close(b.putRelease)
	waitPhase(t, c, id, Uploaded)
}

func TestUploadSuccessEndsWithHundredThenUploaded(t *testing.T) {
	b := newTestBackend()
	defer b.Close()
	c := newTestComposer(b)

	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)
	require.NoError(t, c.AttachImage(context.Background(), id, "a.png", "image/png", make([]byte, 64*1024)))

	waitPhase(t, c, id, Uploaded)
	for _, sec := range c.Sections() {
		if sec.ID == id {
			assert.Equal(t, 100, sec.Upload.Progress)
			assert.NotEmpty(t, sec.Upload.Ref)
		}
	}
}

func TestUploadFailureNeverStaysUploading(t *testing.T) {
	b := newTestBackend()
	b.putStatus = http.StatusInternalServerError
	defer b.Close()
	c := newTestComposer(b)

	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)
	require.NoError(t, c.AttachImage(context.Background(), id, "a.png", "image/png", make([]byte, 1024)))

	waitPhase(t, c, id, UploadFailed)
	for _, sec := range c.Sections() {
		if sec.ID == id {
			assert.Equal(t, ProgressIndeterminate, sec.Upload.Progress)
			assert.NotEmpty(t, sec.Upload.Reason)
		}
	}
}

func TestRemoveDuringUploadDoesNotMutateOthers(t *testing.T) {
	b := newTestBackend()
	b.putStarted = make(chan struct{})
	b.putRelease = make(chan struct{})
	defer b.Close()
	c := newTestComposer(b)

	imgID, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)
	_, err = c.Append(consts.SectionKindText)
	require.NoError(t, err)
	require.NoError(t, c.Update(1, "keep me"))

	started := b.putStarted
	require.NoError(t, c.AttachImage(context.Background(), imgID, "a.png", "image/png", make([]byte, 1024)))
	<-started

	// 上传仍在途时移除图片段落
	require.NoError(t, c.Remove(0))
	close(b.putRelease)

	// 等迟到的完成回调落地成空操作
	time.Sleep(100 * time.Millisecond)

	sections := c.Sections()
	require.Len(t, sections, 1)
	assert.Equal(t, consts.SectionKindText, sections[0].Kind)
	assert.Equal(t, "keep me", sections[0].Content)
	assert.Equal(t, UploadNone, sections[0].Upload.Phase)
}

func TestSubmitSuccessPublishesAndExposesSlug(t *testing.T) {
	b := newTestBackend()
	defer b.Close()
	c := newTestComposer(b)

	require.NoError(t, c.SetTitle("Hello, World!"))
	require.NoError(t, c.SetCategory("technology"))

	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)
	require.NoError(t, c.AttachImage(context.Background(), id, "cover.png", "image/png", make([]byte, 2048)))
	waitPhase(t, c, id, Uploaded)

	_, err = c.Append(consts.SectionKindText)
	require.NoError(t, err)
	require.NoError(t, c.Update(1, "<p>body</p>"))

	slug, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "some-slug", slug)
	assert.Equal(t, "some-slug", c.Slug())

	state, _ := c.State()
	assert.Equal(t, Published, state)

	require.NotNil(t, b.lastPayload)
	require.Len(t, b.lastPayload.Sections, 2)
	// 图片段落内容必须是对象键，order 按位置重新编号
	assert.Equal(t, consts.SectionKindImage, b.lastPayload.Sections[0].Kind)
	assert.Contains(t, b.lastPayload.Sections[0].Content, "cover.png")
	assert.Equal(t, 0, b.lastPayload.Sections[0].Order)
	assert.Equal(t, 1, b.lastPayload.Sections[1].Order)
}

func TestSubmitRejectionPreservesDraftForRetry(t *testing.T) {
	b := newTestBackend()
	b.submitStatus = 400
	defer b.Close()
	c := newTestComposer(b)

	require.NoError(t, c.SetTitle("Hello"))
	_, err := c.Append(consts.SectionKindText)
	require.NoError(t, err)
	require.NoError(t, c.Update(0, "body"))

	_, err = c.Submit(context.Background())
	var rejected *SubmissionRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "标题已被占用", rejected.Message)

	state, msg := c.State()
	assert.Equal(t, SubmitFailed, state)
	assert.Equal(t, "标题已被占用", msg)
	assert.Len(t, c.Sections(), 1)

	// 失败后可直接重试
	b.submitStatus = 201
	slug, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "some-slug", slug)
}

func TestSubmitTransportErrorMarksSubmitFailed(t *testing.T) {
	b := newTestBackend()
	c := newTestComposer(b)
	b.Close() // 提交前就关掉，制造网络错误

	require.NoError(t, c.SetTitle("Hello"))
	_, err := c.Append(consts.SectionKindText)
	require.NoError(t, err)
	require.NoError(t, c.Update(0, "body"))

	_, err = c.Submit(context.Background())
	var transport *TransportError
	require.ErrorAs(t, err, &transport)

	state, _ := c.State()
	assert.Equal(t, SubmitFailed, state)
}

func TestAttachImageRejectsBadMimeAndOversizeLocally(t *testing.T) {
	b := newTestBackend()
	defer b.Close()
	client := NewClient(b.server.URL, "")
	c := NewComposer(client, NewUploader(), 42, 1024)

	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)

	var ve *ValidationError
	err = c.AttachImage(context.Background(), id, "a.svg", "image/svg+xml", []byte("x"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "不支持的文件类型", ve.Reason)

	err = c.AttachImage(context.Background(), id, "a.png", "image/png", make([]byte, 2048))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "文件大小超过限制", ve.Reason)

	// 本地校验不应发出任何请求
	assert.EqualValues(t, 0, b.Requests())
}

func TestStructuralEditsRejectedWhileSubmitting(t *testing.T) {
	b := newTestBackend()
	defer b.Close()

	// 提交挂起，验证期间的结构性修改被拒绝
	blocked := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/post/create", func(w http.ResponseWriter, r *http.Request) {
		close(blocked)
		<-release
		writeEnvelope(w, 201, map[string]string{"id": "1", "slug": "some-slug"})
	})
	slow := httptest.NewServer(mux)
	defer slow.Close()

	c := NewComposer(NewClient(slow.URL, ""), NewUploader(), 42, 0)
	require.NoError(t, c.SetTitle("Hello"))
	_, err := c.Append(consts.SectionKindText)
	require.NoError(t, err)
	require.NoError(t, c.Update(0, "body"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-blocked

	var ve *ValidationError
	_, err = c.Append(consts.SectionKindText)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "正在提交，无法修改", ve.Reason)
	require.ErrorAs(t, c.Remove(0), &ve)
	require.ErrorAs(t, c.SetTitle("changed"), &ve)

	close(release)
	require.NoError(t, <-done)
}

func TestAwaitUploadsBlocksUntilInFlightSettles(t *testing.T) {
	b := newTestBackend()
	started := make(chan struct{})
	release := make(chan struct{})
	b.putStarted = started
	b.putRelease = release
	defer b.Close()
	c := newTestComposer(b)

	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)
	require.NoError(t, c.AttachImage(context.Background(), id, "a.png", "image/png", []byte("img")))
	<-started

	done := make(chan error, 1)
	go func() { done <- c.awaitUploads() }()

	select {
	case <-done:
		t.Fatal("awaitUploads returned while upload still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	waitPhase(t, c, id, Uploaded)
}

func TestAwaitUploadsSurfacesFailedTransfer(t *testing.T) {
	b := newTestBackend()
	started := make(chan struct{})
	release := make(chan struct{})
	b.putStarted = started
	b.putRelease = release
	b.putStatus = http.StatusInternalServerError
	defer b.Close()
	c := newTestComposer(b)

	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)
	require.NoError(t, c.AttachImage(context.Background(), id, "a.png", "image/png", []byte("img")))
	<-started

	done := make(chan error, 1)
	go func() { done <- c.awaitUploads() }()
	close(release)

	var transfer *TransferError
	require.ErrorAs(t, <-done, &transfer)
	waitPhase(t, c, id, UploadFailed)
}

func TestSubmitOnlySendsResolvedImageContent(t *testing.T) {
	// 挂载后立即提交，无论直传与提交闸门怎样交错，
	// 落到后端的载荷里图片段落都必须带着对象引用
	for i := 0; i < 20; i++ {
		b := newTestBackend()
		c := newTestComposer(b)

		require.NoError(t, c.SetTitle("Hello"))
		id, err := c.Append(consts.SectionKindImage)
		require.NoError(t, err)
		require.NoError(t, c.AttachImage(context.Background(), id, "pic.png", "image/png", []byte("img-bytes")))

		slug, err := c.Submit(context.Background())
		if err != nil {
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			waitPhase(t, c, id, Uploaded)
			slug, err = c.Submit(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, "some-slug", slug)

		require.NotNil(t, b.lastPayload)
		require.Len(t, b.lastPayload.Sections, 1)
		assert.NotEmpty(t, b.lastPayload.Sections[0].Content)
		b.Close()
	}
}

func TestRetryUploadRecoversFailedSection(t *testing.T) {
	b := newTestBackend()
	b.putStatus = http.StatusInternalServerError
	defer b.Close()
	c := newTestComposer(b)

	id, err := c.Append(consts.SectionKindImage)
	require.NoError(t, err)
	require.NoError(t, c.AttachImage(context.Background(), id, "a.png", "image/png", []byte("img")))
	waitPhase(t, c, id, UploadFailed)

	b.putStatus = http.StatusOK
	require.NoError(t, c.RetryUpload(context.Background(), id))
	waitPhase(t, c, id, Uploaded)

	for _, sec := range c.Sections() {
		if sec.ID == id {
			assert.NotEmpty(t, sec.Upload.Ref)
			assert.Equal(t, 100, sec.Upload.Progress)
		}
	}

	// 已完成的段落无需重试
	var ve *ValidationError
	require.ErrorAs(t, c.RetryUpload(context.Background(), id), &ve)
	assert.Equal(t, "该段落无需重试", ve.Reason)
}

func TestRequestRetrievalTargetReturnsGetURL(t *testing.T) {
	b := newTestBackend()
	defer b.Close()
	client := NewClient(b.server.URL, "test-token")

	url, err := client.RequestRetrievalTarget(context.Background(), "2024/1_pic.png")
	require.NoError(t, err)
	assert.Contains(t, url, "/get/2024/1_pic.png")

	dead := NewClient("http://127.0.0.1:1", "")
	_, err = dead.RequestRetrievalTarget(context.Background(), "x")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
}
