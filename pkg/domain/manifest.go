package domain

import "time"

// Manifest は完了（または部分完了）したプロジェクトの最終サマリです。
// 失敗したセグメントも必ず載せ、黙って落とすことはしません。
type Manifest struct {
	Project     ManifestProject `json:"project"`
	Models      ManifestModels  `json:"models"`
	Segments    Segments        `json:"segments"`
	Statistics  ManifestStats   `json:"statistics"`
	Errors      []string        `json:"errors"`
	Performance ManifestTimings `json:"performance"`
}

// ManifestProject はプロジェクトのメタ情報です。
type ManifestProject struct {
	Slug        string `json:"slug"`
	Topic       string `json:"topic"`
	Title       string `json:"title,omitempty"`
	VideoType   string `json:"video_type"`
	Stage       Stage  `json:"stage"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at"`
}

// ManifestModels は使用したモデル識別子です。
type ManifestModels struct {
	TextModel  string `json:"text_model"`
	ImageModel string `json:"image_model"`
}

// ManifestStats は成功・失敗の集計です。
type ManifestStats struct {
	TotalSegments     int     `json:"total_segments"`
	GeneratedSegments int     `json:"generated_segments"`
	FailedSegments    int     `json:"failed_segments"`
	TotalDuration     float64 `json:"total_duration_seconds"`
	ScriptWordCount   int     `json:"script_word_count"`
}

// ManifestTimings はラン全体と各ステージの所要時間（秒）です。
type ManifestTimings struct {
	TotalSeconds        float64 `json:"total_seconds"`
	ScriptSeconds       float64 `json:"script_seconds"`
	SegmentationSeconds float64 `json:"segmentation_seconds"`
	RenderSeconds       float64 `json:"render_seconds"`
}

// BuildManifest は Project の実際の結果からマニフェストを組み立てます。
func BuildManifest(p *Project, perf ManifestTimings) Manifest {
	words := 0
	for _, s := range p.Segments {
		words += s.WordCount
	}
	return Manifest{
		Project: ManifestProject{
			Slug:        p.Slug,
			Topic:       p.Topic,
			Title:       p.Title,
			VideoType:   p.VideoType,
			Stage:       p.Stage,
			CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
			CompletedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Models: ManifestModels{
			TextModel:  p.TextModel,
			ImageModel: p.ImageModel,
		},
		Segments: p.Segments,
		Statistics: ManifestStats{
			TotalSegments:     len(p.Segments),
			GeneratedSegments: p.Segments.CountByStatus(StatusGenerated),
			FailedSegments:    p.Segments.CountByStatus(StatusFailed),
			TotalDuration:     p.Segments.TotalDuration(),
			ScriptWordCount:   words,
		},
		Errors:      p.Segments.CollectErrors(),
		Performance: perf,
	}
}
