package output

import (
	"regexp"
	"strings"
	"time"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify はトピック文字列からプロジェクトスラグを生成します。
// 形式: <topic_slug>_YYYYMMDD_HHMMSS（小文字英数字とアンダースコアのみ）。
func Slugify(topic string, now time.Time) string {
	s := strings.ToLower(strings.TrimSpace(topic))
	s = nonSlugChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "project"
	}
	// 長すぎるトピックはディレクトリ名として扱いづらいため切り詰めます。
	const maxTopicLen = 48
	if len(s) > maxTopicLen {
		s = strings.Trim(s[:maxTopicLen], "_")
	}
	return s + "_" + now.Format("20060102_150405")
}
