package composer

import (
	"Inkstone/internal/api/dto"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// UploadTarget 一次直传所需的两个地址
type UploadTarget struct {
	ObjectKey string
	PutURL    string
	GetURL    string
}

// PostResult 提交成功后服务端回显的帖子
type PostResult struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// SubmitSection 提交载荷中的单个段落
type SubmitSection struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// SubmitPayload 帖子提交载荷
type SubmitPayload struct {
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Sections []SubmitSection `json:"sections"`
}

// Client 面向发布后端的 HTTP 客户端，覆盖预签名与帖子提交两个端点
type Client struct {
	http    *resty.Client
	baseURL string
}

func NewClient(baseURL string, token string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &Client{
		http:    client,
		baseURL: baseURL,
	}
}

// MakeObjectKey 生成抗碰撞的对象键：时间戳 + 用户 + 原始文件名
func MakeObjectKey(userID uint64, filename string) string {
	return fmt.Sprintf("%d_%d_%s", time.Now().UnixNano(), userID, filename)
}

// RequestUploadTarget 向预签名端点换取上传/读取地址
// 端点不可达或返回非成功状态一律包装为 UpstreamError，绝不降级为本地地址
func (c *Client) RequestUploadTarget(ctx context.Context, objectKey, contentType string, maxSize int64) (*UploadTarget, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("filename", objectKey).
		SetQueryParam("contentType", contentType)
	if maxSize > 0 {
		req.SetQueryParam("maxSize", strconv.FormatInt(maxSize, 10))
	}

	resp, err := req.Get("/api/media/presign")
	if err != nil {
		return nil, &UpstreamError{Cause: err}
	}

	var result dto.PresignResultDTO
	if err := decodeEnvelope(resp, &result); err != nil {
		return nil, &UpstreamError{Cause: err}
	}

	key := result.ObjectName
	if key == "" {
		key = objectKey
	}
	return &UploadTarget{
		ObjectKey: key,
		PutURL:    result.PresignedPutURL,
		GetURL:    result.PresignedGetURL,
	}, nil
}

// RequestRetrievalTarget 为已发布对象换取临时读取地址
func (c *Client) RequestRetrievalTarget(ctx context.Context, objectKey string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("objectName", objectKey).
		Get("/api/media/retrieve")
	if err != nil {
		return "", &UpstreamError{Cause: err}
	}

	var result dto.RetrieveResultDTO
	if err := decodeEnvelope(resp, &result); err != nil {
		return "", &UpstreamError{Cause: err}
	}
	return result.PresignedGetURL, nil
}

// SubmitPost 提交草稿
// 服务端校验拒绝与网络错误分开建模，调用方据此决定提示方式
func (c *Client) SubmitPost(ctx context.Context, payload *SubmitPayload) (*PostResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/api/post/create")
	if err != nil {
		return nil, &TransportError{Cause: err}
	}

	var result PostResult
	if err := decodeEnvelope(resp, &result); err != nil {
		if rejected, ok := err.(*SubmissionRejected); ok {
			return nil, rejected
		}
		return nil, &TransportError{Cause: err}
	}
	return &result, nil
}

// decodeEnvelope 解开 {Code, Message, Data} 信封，业务码非 2xx 视为服务端拒绝
func decodeEnvelope(resp *resty.Response, out interface{}) error {
	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode(), err)
	}
	if envelope.Code < 200 || envelope.Code > 299 {
		return &SubmissionRejected{Message: envelope.Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
