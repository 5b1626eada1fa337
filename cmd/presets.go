package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shouni/go-aiva-kit/pkg/prompts"

	"github.com/spf13/cobra"
)

// presetsCmd は、利用可能なスタイルプリセットの一覧を表示するのだ。
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "利用できるスタイルプリセットの一覧を表示するのだ。",
	Long: `画像プロンプトの強化に使えるスタイルプリセットと、
その構成断片（プレフィックス・画質・ライティングなど）を一覧するのだ。
API呼び出しは発生しないのだよ。`,
	RunE: presetsCommand,
}

func presetsCommand(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPREFIX\tMOOD")
	for _, name := range prompts.Names() {
		p, err := prompts.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Prefix, p.Mood)
	}
	return w.Flush()
}
