package minio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// PresignTarget 一次预签名的结果
type PresignTarget struct {
	PutURL string
	GetURL string
}

// PresignUpload 签发暂存桶的直传 PUT 与读取 GET
func PresignUpload(ctx context.Context, objectName string, contentType string, expiry time.Duration) (*PresignTarget, error) {
	if PresignClient == nil {
		return nil, fmt.Errorf("minio client is not initialized")
	}

	putURL, err := PresignClient.PresignHeader(ctx, "PUT", TempBucket, objectName, expiry,
		url.Values{}, http.Header{"Content-Type": {contentType}})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	getURL, err := PresignClient.PresignedGetObject(ctx, TempBucket, objectName, expiry, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to presign retrieval: %w", err)
	}

	return &PresignTarget{
		PutURL: putURL.String(),
		GetURL: getURL.String(),
	}, nil
}

// PresignRetrieval 签发正式桶对象的读取 URL
func PresignRetrieval(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if PresignClient == nil {
		return "", fmt.Errorf("minio client is not initialized")
	}

	getURL, err := PresignClient.PresignedGetObject(ctx, MainBucket, objectName, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign retrieval: %w", err)
	}
	return getURL.String(), nil
}
