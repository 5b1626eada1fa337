package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"

	"github.com/shouni/go-aiva-kit/internal/config"
	"github.com/shouni/go-aiva-kit/pkg/generator"
	"github.com/shouni/go-aiva-kit/pkg/output"
	"github.com/shouni/go-aiva-kit/pkg/pipeline"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する。
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config   *config.Config        // Configは、環境変数・設定ファイルから解決済みのグローバル設定です。
	Reader   remoteio.InputReader  // Readerは、再開時の状態読み込みに使用する入力元です。
	Writer   remoteio.OutputWriter // Writerは、生成物を保存するための出力先です。
	Output   *output.Manager       // Outputは、プロジェクトディレクトリのレイアウトを管理します。
	Pipeline *pipeline.Pipeline    // Pipelineは、台本から画像までの全ステージを実行します。
}

// NewAppContext は設定からアプリケーション全体を組み立てるのだ。
// クライアント初期化・ストレージ・パイプラインの構築をここに集約します。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	httpClient := httpkit.New(cfg.HTTPTimeout)

	aiClient, err := InitializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	out := output.NewManager(reader, writer, cfg.OutputDir)

	scriptGen, err := generator.NewGeminiScriptGenerator(aiClient, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("台本ジェネレーターの構築に失敗したのだ: %w", err)
	}
	imageGen, err := generator.NewGeminiImageGenerator(httpClient, aiClient, cfg.GeminiImageModel)
	if err != nil {
		return nil, fmt.Errorf("画像ジェネレーターの構築に失敗したのだ: %w", err)
	}

	pipe, err := pipeline.New(pipeline.Config{
		TargetSegments:           cfg.TargetSegments,
		SegmentDuration:          cfg.SegmentDuration,
		MinSegments:              cfg.MinSegments,
		MaxSegments:              cfg.MaxSegments,
		MinWordsPerSeg:           cfg.MinWordsPerSeg,
		MaxWordsPerSeg:           cfg.MaxWordsPerSeg,
		MinScriptWords:           cfg.MinScriptWords,
		MaxScriptWords:           cfg.MaxScriptWords,
		StylePreset:              cfg.StylePreset,
		AspectRatio:              cfg.AspectRatio,
		Audience:                 cfg.Audience,
		ContentStyle:             cfg.ContentStyle,
		MaxAttempts:              cfg.MaxAttempts,
		BaseDelay:                cfg.BaseDelay,
		Multiplier:               cfg.Multiplier,
		RateInterval:             cfg.RateInterval,
		TotalTimeout:             cfg.TotalTimeout,
		ContinueOnPartialFailure: cfg.ContinueOnPartialFailure,
		Parallel:                 cfg.Parallel,
	}, scriptGen, imageGen, out)
	if err != nil {
		return nil, err
	}

	return &AppContext{
		Config:   cfg,
		Reader:   reader,
		Writer:   writer,
		Output:   out,
		Pipeline: pipe,
	}, nil
}

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	const defaultGeminiTemperature = float32(0.7)
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}
