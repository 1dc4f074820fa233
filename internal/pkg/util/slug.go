package util

import (
	"regexp"
	"strings"
)

var slugStripRegex = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// Slugify 从标题派生 slug：空格转连字符，转小写，剔除其余非法字符
func Slugify(title string) string {
	slug := strings.Join(strings.Split(title, " "), "-")
	slug = strings.ToLower(slug)
	return slugStripRegex.ReplaceAllString(slug, "")
}
