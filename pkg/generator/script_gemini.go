package generator

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	_ "embed"

	"github.com/shouni/go-gemini-client/pkg/gemini"
)

//go:embed script_prompt.md
var scriptPromptTemplate string

// GeminiScriptGenerator は Gemini で台本テキストを生成する実装です。
type GeminiScriptGenerator struct {
	aiClient gemini.GenerativeModel
	model    string
	tmpl     *template.Template
}

// NewGeminiScriptGenerator は埋め込みテンプレートを解析して初期化します。
func NewGeminiScriptGenerator(aiClient gemini.GenerativeModel, model string) (*GeminiScriptGenerator, error) {
	if scriptPromptTemplate == "" {
		return nil, fmt.Errorf("台本プロンプトテンプレート (go:embed) の読み込みに失敗しました: 内容が空です")
	}
	tmpl, err := template.New("script").Parse(scriptPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("台本プロンプトの解析に失敗: %w", err)
	}
	return &GeminiScriptGenerator{
		aiClient: aiClient,
		model:    model,
		tmpl:     tmpl,
	}, nil
}

// GenerateScript はトピック等をテンプレートへ流し込み、Gemini に台本を書かせます。
func (g *GeminiScriptGenerator) GenerateScript(ctx context.Context, req ScriptRequest) (ScriptResult, error) {
	var sb strings.Builder
	if err := g.tmpl.Execute(&sb, req); err != nil {
		return ScriptResult{}, fmt.Errorf("台本プロンプトテンプレートの実行に失敗しました: %w", err)
	}

	resp, err := g.aiClient.GenerateContent(ctx, sb.String(), g.model)
	if err != nil {
		return ScriptResult{}, fmt.Errorf("台本の生成に失敗したのだ: %w", err)
	}

	script := stripCodeFence(resp.Text)
	if strings.TrimSpace(script) == "" {
		return ScriptResult{}, fmt.Errorf("AIからの応答が空でした (model: %s)", g.model)
	}

	return ScriptResult{Script: script}, nil
}

// stripCodeFence は AI が付けがちな Markdown コードフェンスを取り除きます。
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
