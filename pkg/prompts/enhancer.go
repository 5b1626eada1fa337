package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// Enhancer は素のシーン描写をスタイル付きの画像生成プロンプトへ
// 決定論的に書き換えます。同じ入力は必ずバイト単位で同じ出力になります
// （マニフェストの再現性とゴールデンファイルテストの前提です）。
type Enhancer struct {
	preset      Preset
	aspectRatio string
}

// 重複を避けるため、描写側から取り除く既知の強調キーワード
var enhancementKeywords = []string{
	"ultra-realistic", "cinematic", "4k", "professional", "dramatic",
	"high resolution", "depth of field", "bokeh", "film grain",
}

var (
	keywordRegexes  = buildKeywordRegexes()
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

func buildKeywordRegexes() []*regexp.Regexp {
	regexes := make([]*regexp.Regexp, 0, len(enhancementKeywords))
	for _, kw := range enhancementKeywords {
		regexes = append(regexes, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return regexes
}

// NewEnhancer は指定プリセットの Enhancer を返します。
// プリセット名が未知の場合は ConfigurationError です。
func NewEnhancer(presetName, aspectRatio string) (*Enhancer, error) {
	preset, err := Lookup(presetName)
	if err != nil {
		return nil, err
	}
	return &Enhancer{preset: preset, aspectRatio: aspectRatio}, nil
}

// Enhance は描写とスタイル断片を固定順で連結します。
// 順序: prefix → 描写 → quality → lighting → camera → style → mood → aspect ratio
func (e *Enhancer) Enhance(description string) string {
	parts := []string{
		e.preset.Prefix,
		"of " + e.cleanDescription(description),
		e.preset.Quality,
		e.preset.Lighting,
		e.preset.Camera,
		e.preset.Style,
		e.preset.Mood,
	}
	if e.aspectRatio != "" {
		parts = append(parts, fmt.Sprintf("aspect ratio %s", e.aspectRatio))
	}

	var clean []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, ", ")
}

// PresetName は適用中のプリセット名を返します。
func (e *Enhancer) PresetName() string {
	return e.preset.Name
}

// cleanDescription は空白を畳み込み、プリセット側と重複しがちな
// 強調キーワードを描写から取り除くのだ。
func (e *Enhancer) cleanDescription(description string) string {
	s := description
	for _, re := range keywordRegexes {
		s = re.ReplaceAllString(s, "")
	}
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}
