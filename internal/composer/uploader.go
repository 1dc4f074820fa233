package composer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// ProgressIndeterminate 失败后回退到的进度值，界面据此清掉百分比展示
const ProgressIndeterminate = -1

// ProgressFunc 进度回调，成功路径上最后一次必为 100
type ProgressFunc func(percent int)

// Uploader 对象直传执行器，PUT 到预签名地址
// 不做自动重试，失败立即上抛由调用方决定是否重传
type Uploader struct {
	http *resty.Client
}

func NewUploader() *Uploader {
	return &Uploader{
		http: resty.New().SetTimeout(5 * time.Minute),
	}
}

// Upload 把二进制载荷推到 uploadURL
// 进度单调不减，传输失败回调 ProgressIndeterminate 防止停留在接近完成的假象
func (u *Uploader) Upload(ctx context.Context, uploadURL string, payload []byte, contentType string, onProgress ProgressFunc) error {
	if onProgress == nil {
		onProgress = func(int) {}
	}

	reader := &progressReader{
		inner: bytes.NewReader(payload),
		total: int64(len(payload)),
		emit:  onProgress,
	}

	resp, err := u.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetContentLength(true).
		SetBody(reader).
		Put(uploadURL)
	if err != nil {
		onProgress(ProgressIndeterminate)
		return &TransferError{Reason: err.Error()}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		onProgress(ProgressIndeterminate)
		return &TransferError{Reason: fmt.Sprintf("对象存储返回 %d", resp.StatusCode())}
	}

	onProgress(100)
	return nil
}

// progressReader 按已读字节量换算百分比，传输中封顶 99，响应确认后才报 100
type progressReader struct {
	inner *bytes.Reader
	total int64
	read  int64
	last  int
	emit  ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.read += int64(n)
		percent := 99
		if r.total > 0 {
			percent = int(r.read * 100 / r.total)
			if percent > 99 {
				percent = 99
			}
		}
		if percent > r.last {
			r.last = percent
			r.emit(percent)
		}
	}
	if err != nil && err != io.EOF {
		return n, err
	}
	return n, err
}
