package generator

import "context"

// ScriptRequest は台本生成コラボレーターへ渡す構造化リクエストです。
type ScriptRequest struct {
	Topic       string
	VideoType   string // "short" または "long-form"
	Audience    string
	Style       string
	TargetWords int
}

// ScriptResult は生成された台本と、あれば映像ヒントを保持します。
// VisualHints はセグメント順の描写候補で、空でも構いません。あれば分割時に
// 対応するセグメントの VisualDescription として採用され、なければ
// セグメント本文が描写の代わりになります。
type ScriptResult struct {
	Script      string
	VisualHints []string
}

// ScriptGenerator は台本テキストを生成する外部コラボレーターの契約です。
// 失敗は再試行可能なエラーとして返します。
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req ScriptRequest) (ScriptResult, error)
}

// ImageRequest は1枚の画像生成要求です。
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Format      string // 例: "png"
}

// ImageResult は生成された画像データとメタ情報です。
type ImageResult struct {
	Data     []byte
	MimeType string
}

// ImageGenerator は強化済みプロンプトから画像バイト列を生成する
// 外部コラボレーターの契約です。失敗は再試行可能なエラーとして返します。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error)
}
