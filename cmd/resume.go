package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-aiva-kit/internal/builder"
	"github.com/shouni/go-aiva-kit/internal/config"

	"github.com/spf13/cobra"
)

// resumeCmd は、中断したプロジェクトを state.json から再開するのだ。
var resumeCmd = &cobra.Command{
	Use:   "resume <project-dir>",
	Short: "中断したプロジェクトを続きから再開するのだ。",
	Long: `プロジェクトディレクトリの state.json を読み込み、
中断したステージから処理を再開するのだ。生成済みのセグメントは
スキップされ、API呼び出しは発生しないのだよ。`,
	Args: cobra.ExactArgs(1),
	RunE: resumeCommand,
}

func resumeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	projectDir := args[0]

	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}

	slog.Info("プロジェクトの再開を試みるのだ", "dir", projectDir)

	project, err := appCtx.Pipeline.Resume(ctx, projectDir)
	if err != nil {
		return fmt.Errorf("再開処理中にエラーが発生したのだ: %w", err)
	}

	slog.Info("再開処理が完了したのだ！",
		"slug", project.Slug,
		"stage", project.Stage)
	return nil
}
