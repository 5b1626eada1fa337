package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-aiva-kit/internal/builder"
	"github.com/shouni/go-aiva-kit/internal/config"

	"github.com/spf13/cobra"
)

// generateCmd は、トピックから台本・セグメント・画像まで全工程を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "トピックから台本と全セグメント画像を生成しますなのだ。",
	Long: `指定したトピックの台本をAIに書かせ、固定尺のセグメントへ分割し、
各セグメントの画像を生成して manifest.json にまとめるのだ。
中断しても resume コマンドで続きから再開できるのだよ。`,
	Args: cobra.MinimumNArgs(1),
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		return fmt.Errorf("トピックを指定してほしいのだ")
	}

	cfg, err := config.Load(opts)
	if err != nil {
		if opts.DryRun {
			// ドライランはAPIキーなしでも計画を見せたいのだ
			return dryRunPlan(topic, err)
		}
		return err
	}

	if opts.DryRun {
		slog.Info("ドライラン: 実行計画だけを表示するのだ",
			"topic", topic, "plan", cfg.PipelineDescription())
		return nil
	}

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}

	slog.Info("生成パイプラインを起動するのだ！",
		"topic", topic,
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"output", cfg.OutputDir)

	project, err := appCtx.Pipeline.Run(ctx, topic, opts.Title, opts.VideoType, cfg.GeminiModel, cfg.GeminiImageModel)
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！",
		"slug", project.Slug,
		"segments", len(project.Segments))
	return nil
}

// dryRunPlan は設定ロードに失敗した場合でも分かる範囲の計画を出すのだ。
func dryRunPlan(topic string, loadErr error) error {
	slog.Warn("設定の解決に失敗したため、一部の計画情報は表示できないのだ",
		"topic", topic, "error", loadErr)
	return nil
}
