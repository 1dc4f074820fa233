package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid       = errors.New("参数错误")
	ErrTitleRequired      = errors.New("标题和段落不能为空")
	ErrCategoryInvalid    = errors.New("分类不存在")
	ErrSectionKindInvalid = errors.New("段落类型不支持")
	ErrSlugExist          = errors.New("标题已被占用")
	ErrPostNotFound       = errors.New("帖子不存在")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserBan            = errors.New("用户已被封禁")
	ErrFileNotSupported   = errors.New("不支持的文件类型")
	ErrFileTooLarge       = errors.New("文件大小超过限制")
	ErrFileNotExist       = errors.New("文件不存在")
	ForbiddenError        = errors.New("无权操作该资源")
	UnExpectedError       = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:       BadRequest,
	ErrTitleRequired:      BadRequest,
	ErrCategoryInvalid:    BadRequest,
	ErrSectionKindInvalid: BadRequest,
	ErrSlugExist:          BadRequest,
	ErrPostNotFound:       NotFound,
	ErrUserNotFound:       NotFound,
	ErrUserBan:            Forbidden,
	ErrFileNotSupported:   BadRequest,
	ErrFileTooLarge:       BadRequest,
	ErrFileNotExist:       NotFound,
	ForbiddenError:        Forbidden,
	UnExpectedError:       InternalServerError,
}
