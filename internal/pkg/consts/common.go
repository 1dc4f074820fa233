package consts

const (
	MimePrefixImage = "image"
)

// AcceptedImageMimeTypes 允许直传的图片类型
var AcceptedImageMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/apng": {},
	"image/avif": {},
}

// 帖子分类固定枚举，未指定时回退到 uncategorized
const CategoryDefault = "uncategorized"

var PostCategories = map[string]struct{}{
	CategoryDefault: {},
	"technology":    {},
	"lifestyle":     {},
	"travel":        {},
	"food":          {},
	"opinion":       {},
}

// Section 类型
const (
	SectionKindText  = "text"
	SectionKindImage = "image"
	SectionKindVideo = "video"
	SectionKindEmbed = "embed"
)

var SectionKinds = map[string]struct{}{
	SectionKindText:  {},
	SectionKindImage: {},
	SectionKindVideo: {},
	SectionKindEmbed: {},
}

// 角色
const (
	RoleAdmin  = "ADMIN"
	RoleWriter = "WRITER"
)
