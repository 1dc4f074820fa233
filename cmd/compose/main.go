package main

import (
	"Inkstone/internal/composer"
	"Inkstone/internal/pkg/consts"
	"Inkstone/internal/pkg/util"
	"context"
	"flag"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// manifest 描述一篇待发布的草稿
type manifest struct {
	Title    string            `json:"title" validate:"required,max=255"`
	Category string            `json:"category" validate:"omitempty,max=64"`
	Sections []manifestSection `json:"sections" validate:"required,min=1,max=50,dive"`
}

type manifestSection struct {
	Kind    string `json:"kind" validate:"required,oneof=text image video embed"`
	Content string `json:"content,omitempty"`
	File    string `json:"file,omitempty"`
}

var extToMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".apng": "image/apng",
	".avif": "image/avif",
}

func main() {
	server := flag.String("server", "http://localhost:8080", "发布后端地址")
	token := flag.String("token", "", "Bearer Token")
	manifestPath := flag.String("manifest", "", "草稿清单 JSON 文件")
	userID := flag.Uint64("user", 0, "作者用户 ID，用于对象键生成")
	maxSize := flag.Int64("max-size", 10*1024*1024, "单图大小上限（字节）")
	flag.Parse()

	log.SetDefault(log.New(log.NewTextHandler(os.Stderr, nil)))

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "usage: compose -manifest draft.json [-server URL] [-token TOKEN] [-user ID]")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		log.Error("read manifest failed", "err", err)
		os.Exit(1)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		log.Error("parse manifest failed", "err", err)
		os.Exit(1)
	}
	if err := util.ValidateDTO(&m); err != nil {
		log.Error("manifest invalid", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client := composer.NewClient(*server, *token)
	cmp := composer.NewComposer(client, composer.NewUploader(), *userID, *maxSize)

	if err := cmp.SetTitle(m.Title); err != nil {
		fatal(err)
	}
	if err := cmp.SetCategory(m.Category); err != nil {
		fatal(err)
	}

	baseDir := filepath.Dir(*manifestPath)
	for i, sec := range m.Sections {
		id, err := cmp.Append(sec.Kind)
		if err != nil {
			fatal(fmt.Errorf("section %d: %w", i, err))
		}

		if sec.Kind == consts.SectionKindImage {
			path := sec.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				fatal(fmt.Errorf("section %d: read image: %w", i, err))
			}
			mimeType := extToMime[strings.ToLower(filepath.Ext(path))]
			if err := cmp.AttachImage(ctx, id, filepath.Base(path), mimeType, data); err != nil {
				fatal(fmt.Errorf("section %d: %w", i, err))
			}
		} else if err := cmp.Update(i, sec.Content); err != nil {
			fatal(fmt.Errorf("section %d: %w", i, err))
		}
	}

	// 等待挂载时触发的直传收敛，Pending 的由 Submit 兜底
	waitUploads(cmp, 5*time.Minute)

	// 失败的直传重试一轮再放弃
	retried := false
	for _, sec := range cmp.Sections() {
		if sec.Upload.Phase == composer.UploadFailed {
			log.Warn("retrying failed upload", "section", sec.ID, "reason", sec.Upload.Reason)
			if err := cmp.RetryUpload(ctx, sec.ID); err == nil {
				retried = true
			}
		}
	}
	if retried {
		waitUploads(cmp, 2*time.Minute)
	}

	fmt.Fprint(os.Stderr, cmp.Describe())

	slug, err := cmp.Submit(ctx)
	if err != nil {
		fatal(err)
	}

	log.Info("post published", "slug", slug)
	fmt.Println(slug)
}

// waitUploads 轮询等待所有图片段落离开 Uploading 阶段
func waitUploads(cmp *composer.Composer, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		busy := false
		for _, sec := range cmp.Sections() {
			if sec.Upload.Phase == composer.Uploading || sec.Upload.Phase == composer.UploadPending {
				busy = true
				break
			}
		}
		if !busy {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func fatal(err error) {
	log.Error("compose failed", "err", err)
	os.Exit(1)
}
