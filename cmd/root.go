package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-aiva-kit/internal/config"

	"github.com/joho/godotenv"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts は addAppFlags で各フラグに紐付けられる実行時パラメータなのだ。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 生成対象の設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.Title, "title", "t", "", "動画のタイトル（省略時はトピックから自動生成なのだ）。")
	rootCmd.PersistentFlags().StringVar(&opts.VideoType, "video-type", "long-form", "動画の種類（short / long-form）なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "保存先ディレクトリ（ローカル or gs://...）なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.SettingsFile, "settings", "s", "", "設定上書き用の settings.json のパスなのだ。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.TextModel, "model", "", "台本生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "画像生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.StylePreset, "style-preset", "p", "", "画像プロンプトのスタイルプリセット名なのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "API呼び出しをせず実行計画だけを表示するのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// .env があれば読み込むのだ（なくてもエラーにはしない）
	_ = godotenv.Load()

	// presets コマンドはAPIを使わないためキーなしでも動かせるのだ
	if cmd.Name() == "presets" {
		return nil
	}

	if !opts.DryRun && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"aiva",
		addAppFlags,
		preRunAppE,
		generateCmd,
		scriptCmd,
		resumeCmd,
		presetsCmd,
	)
}
