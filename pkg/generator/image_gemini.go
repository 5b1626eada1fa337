package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
)

const (
	imageCacheExpiration = 30 * time.Minute
	imageCacheCleanup    = 1 * time.Hour
	imageCacheTTL        = 1 * time.Hour

	// 生成画像から排除したい要素（文字・透かし・崩れた描写）
	defaultNegativePrompt = "text, letters, words, watermark, signature, low quality, distorted, bad anatomy"
)

// GeminiImageGenerator は gemini-image-kit を介して画像を生成する実装です。
type GeminiImageGenerator struct {
	imgGen imagekit.ImageGenerator
}

// NewGeminiImageGenerator は画像処理コア（キャッシュ込み）とジェネレーターを初期化します。
func NewGeminiImageGenerator(httpClient httpkit.ClientInterface, aiClient gemini.GenerativeModel, model string) (*GeminiImageGenerator, error) {
	imgCache := cache.New(imageCacheExpiration, imageCacheCleanup)

	core, err := imagekit.NewGeminiImageCore(httpClient, imgCache, imageCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗しました: %w", err)
	}

	imgGen, err := imagekit.NewGeminiGenerator(core, aiClient, model)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗しました: %w", err)
	}

	return &GeminiImageGenerator{imgGen: imgGen}, nil
}

// GenerateImage は強化済みプロンプトで1枚のシーン画像を生成します。
func (g *GeminiImageGenerator) GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	resp, err := g.imgGen.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:         req.Prompt,
		NegativePrompt: defaultNegativePrompt,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("画像生成に失敗したのだ: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return ImageResult{}, fmt.Errorf("画像生成の応答が空でした")
	}

	return ImageResult{Data: resp.Data, MimeType: resp.MimeType}, nil
}
