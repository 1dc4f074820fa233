package composer

import "fmt"

// ValidationError 本地校验失败，不会发起任何网络请求
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// UpstreamError 预签名端点不可达或返回非成功状态
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("上传服务不可用: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// TransferError 对象直传失败，不自动重试
type TransferError struct {
	Reason string
}

func (e *TransferError) Error() string {
	return "图片上传失败: " + e.Reason
}

// SubmissionRejected 服务端校验拒绝，如标题重复
type SubmissionRejected struct {
	Message string
}

func (e *SubmissionRejected) Error() string {
	return e.Message
}

// TransportError 提交过程中的网络层错误
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("网络错误: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
