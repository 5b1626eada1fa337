package domain

import "fmt"

// SegmentStatus はセグメント単位の処理状態を表します。
type SegmentStatus string

const (
	StatusPending   SegmentStatus = "pending"
	StatusGenerated SegmentStatus = "generated"
	StatusFailed    SegmentStatus = "failed"
)

// Segment は、固定尺のナレーション1スライスとその映像情報を保持する値型です。
// Index は 1 始まりの連番で、時間帯は [StartTime, EndTime) を隙間なく敷き詰めます。
type Segment struct {
	Index             int           `json:"index"`
	StartTime         float64       `json:"start_time"`
	EndTime           float64       `json:"end_time"`
	Text              string        `json:"text"`
	WordCount         int           `json:"word_count"`
	VisualDescription string        `json:"visual_description"`
	EnhancedPrompt    string        `json:"enhanced_prompt"`
	ImagePath         string        `json:"image_path,omitempty"`
	Status            SegmentStatus `json:"status"`
	Error             string        `json:"error,omitempty"`
	Attempts          int           `json:"attempts,omitempty"`
	UpdatedAt         string        `json:"updated_at,omitempty"`
}

// Duration はこのセグメントの再生尺（秒）を返します。
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// DirName は出力ディレクトリ上のセグメントフォルダ名を返します（例: segment_05）。
func (s Segment) DirName() string {
	return fmt.Sprintf("segment_%02d", s.Index)
}

// Segments は Index 順に並んだセグメント列です。
type Segments []Segment

// CountByStatus は指定ステータスのセグメント数を数えます。
func (ss Segments) CountByStatus(status SegmentStatus) int {
	n := 0
	for _, s := range ss {
		if s.Status == status {
			n++
		}
	}
	return n
}

// CollectErrors は失敗したセグメントのエラー文言を index 付きで集めるのだ。
func (ss Segments) CollectErrors() []string {
	var errs []string
	for _, s := range ss {
		if s.Status == StatusFailed && s.Error != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", s.DirName(), s.Error))
		}
	}
	return errs
}

// TotalDuration は全セグメントを合計した尺（秒）を返します。
func (ss Segments) TotalDuration() float64 {
	if len(ss) == 0 {
		return 0
	}
	return ss[len(ss)-1].EndTime
}
