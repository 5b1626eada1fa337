package segmenter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-aiva-kit/pkg/domain"
)

// デフォルト値の定義（5分尺 ≒ 38 × 8秒 = 304秒）
const (
	DefaultTargetSegments = 38
	DefaultDuration       = 8.0
	DefaultMinSegments    = 35
	DefaultMaxSegments    = 40
	DefaultMinWords       = 10
	DefaultMaxWords       = 25
	DefaultMinScriptWords = 500
	DefaultMaxScriptWords = 800
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	bracketRegex    = regexp.MustCompile(`\[[^\]]*\]`)
	parenRegex      = regexp.MustCompile(`\([^)]*\)`)
)

// Segmenter は台本文字列を固定尺のセグメント列へ機械的に分割します。
// 純粋関数として動作し、副作用もAPIアクセスも持ちません。
type Segmenter struct {
	TargetSegments int
	Duration       float64 // 1セグメントあたりの尺（秒）
	MinSegments    int
	MaxSegments    int
	MinWords       int // セグメントあたりの語数下限
	MaxWords       int
	MinScriptWords int // 台本全体の語数下限
	MaxScriptWords int
}

// New はデフォルト境界で初期化した Segmenter を返します。
func New(targetSegments int, duration float64) Segmenter {
	return Segmenter{
		TargetSegments: targetSegments,
		Duration:       duration,
		MinSegments:    DefaultMinSegments,
		MaxSegments:    DefaultMaxSegments,
		MinWords:       DefaultMinWords,
		MaxWords:       DefaultMaxWords,
		MinScriptWords: DefaultMinScriptWords,
		MaxScriptWords: DefaultMaxScriptWords,
	}
}

// Split は台本を語数比例で TargetSegments 個の連続スライスへ分割します。
//
// 文境界ではなく語数で切るのは、タイミングを一様に保つためです。余り語は
// 末尾側のセグメントへ1語ずつ配分します。境界違反（本数や語数が設定レンジ外）
// を検出した場合でも、ベストエフォートの結果と *domain.ValidationError を
// 同時に返し、継続するかどうかはオーケストレーター側の方針に委ねます。
// 台本が空のときだけは分割できないため、nil とエラーを返します。
func (sg Segmenter) Split(script string) (domain.Segments, error) {
	cleaned := sg.cleanScript(script)
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return nil, domain.NewValidationError("script is empty")
	}

	var issues []string
	if len(words) < sg.MinScriptWords {
		issues = append(issues, fmt.Sprintf("script word count %d below minimum %d", len(words), sg.MinScriptWords))
	}
	if sg.MaxScriptWords > 0 && len(words) > sg.MaxScriptWords {
		issues = append(issues, fmt.Sprintf("script word count %d above maximum %d", len(words), sg.MaxScriptWords))
	}

	// 語数がターゲット本数に満たない場合は1語1セグメントまで縮退させるのだ
	count := sg.TargetSegments
	if len(words) < count {
		count = len(words)
	}
	if count < sg.MinSegments || count > sg.MaxSegments {
		issues = append(issues, fmt.Sprintf("segment count %d outside bounds [%d, %d]", count, sg.MinSegments, sg.MaxSegments))
	}

	segments := sg.allocate(words, count)
	for _, seg := range segments {
		if seg.WordCount < sg.MinWords || seg.WordCount > sg.MaxWords {
			issues = append(issues, fmt.Sprintf("%s word count %d outside bounds [%d, %d]", seg.DirName(), seg.WordCount, sg.MinWords, sg.MaxWords))
		}
	}

	if len(issues) > 0 {
		return segments, domain.NewValidationError(issues...)
	}
	return segments, nil
}

// allocate は語列を count 本へ比例配分します。余りは末尾側へ寄せます。
func (sg Segmenter) allocate(words []string, count int) domain.Segments {
	base := len(words) / count
	rem := len(words) % count

	segments := make(domain.Segments, 0, count)
	pos := 0
	for i := 0; i < count; i++ {
		size := base
		// 末尾 rem 本に余りを1語ずつ配分する
		if i >= count-rem {
			size++
		}
		text := strings.Join(words[pos:pos+size], " ")
		pos += size

		segments = append(segments, domain.Segment{
			Index:     i + 1,
			StartTime: float64(i) * sg.Duration,
			EndTime:   float64(i+1) * sg.Duration,
			Text:      text,
			WordCount: size,
			Status:    domain.StatusPending,
		})
	}
	return segments
}

// cleanScript は分割前の正規化を行います。ト書きや注記（[...] と (...)）を
// 取り除き、空白を畳み込みます。
func (sg Segmenter) cleanScript(script string) string {
	s := bracketRegex.ReplaceAllString(script, " ")
	s = parenRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}
