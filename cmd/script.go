package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-aiva-kit/internal/builder"
	"github.com/shouni/go-aiva-kit/internal/config"

	"github.com/spf13/cobra"
)

// scriptCmd は、台本生成とセグメント分割のみを実行するのだ。
var scriptCmd = &cobra.Command{
	Use:   "script <topic>",
	Short: "台本とセグメント分割のみを生成するのだ。",
	Long: `トピックから台本を生成し、固定尺セグメントへの分割と
プロンプト強化までを行うのだ。画像生成は行わないのだよ。
分割結果はJSONで標準出力にも表示されるのだ。`,
	Args: cobra.MinimumNArgs(1),
	RunE: scriptCommand,
}

func scriptCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		return fmt.Errorf("トピックを指定してほしいのだ")
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	appCtx, err := builder.NewAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}

	slog.Info("台本生成モードを起動するのだ！",
		"topic", topic,
		"text_model", cfg.GeminiModel,
		"output", cfg.OutputDir)

	project, err := appCtx.Pipeline.RunScriptOnly(ctx, topic, opts.Title, opts.VideoType, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("台本生成中にエラーが発生したのだ: %w", err)
	}

	// 分割結果を検分できるようにJSONで出すのだ
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(project.Segments); err != nil {
		return fmt.Errorf("セグメントのJSON出力に失敗したのだ: %w", err)
	}

	slog.Info("台本の生成が完了したのだ！",
		"slug", project.Slug,
		"segments", len(project.Segments))
	return nil
}
