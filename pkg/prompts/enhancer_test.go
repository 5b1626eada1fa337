package prompts

import (
	"errors"
	"strings"
	"testing"

	"github.com/shouni/go-aiva-kit/pkg/domain"
)

func TestEnhancer_Enhance(t *testing.T) {
	t.Run("同じ入力は必ずバイト単位で同じ出力になるのだ", func(t *testing.T) {
		e, err := NewEnhancer("cinematic_4k", "16:9")
		if err != nil {
			t.Fatalf("Enhancer の構築に失敗したのだ: %v", err)
		}

		first := e.Enhance("a lighthouse on a stormy coast")
		for i := 0; i < 10; i++ {
			if got := e.Enhance("a lighthouse on a stormy coast"); got != first {
				t.Fatalf("決定論が崩れているのだ: %q != %q", got, first)
			}
		}
	})

	t.Run("断片は固定順（prefix→描写→quality→…→aspect ratio）で並ぶのだ", func(t *testing.T) {
		e, err := NewEnhancer("cinematic_4k", "16:9")
		if err != nil {
			t.Fatalf("Enhancer の構築に失敗したのだ: %v", err)
		}

		got := e.Enhance("a quiet mountain village")
		wantOrder := []string{
			"Ultra-realistic cinematic shot",
			"of a quiet mountain village",
			"4K resolution, professional cinematography",
			"dramatic lighting, depth of field",
			"cinematic atmosphere",
			"aspect ratio 16:9",
		}

		pos := -1
		for _, frag := range wantOrder {
			idx := strings.Index(got, frag)
			if idx < 0 {
				t.Fatalf("断片 %q が出力に見つからないのだ: %q", frag, got)
			}
			if idx <= pos {
				t.Errorf("断片 %q の順序が違うのだ: %q", frag, got)
			}
			pos = idx
		}
	})

	t.Run("プリセットと重複する強調キーワードは描写側から取り除かれるのだ", func(t *testing.T) {
		e, err := NewEnhancer("cinematic_4k", "16:9")
		if err != nil {
			t.Fatalf("Enhancer の構築に失敗したのだ: %v", err)
		}

		got := e.Enhance("a cinematic 4K shot of a castle")
		// 描写部分（"of " 以降、最初のカンマまで）に重複キーワードがないこと
		desc := got[strings.Index(got, "of "):]
		desc = desc[:strings.Index(desc, ",")]
		if strings.Contains(strings.ToLower(desc), "cinematic") || strings.Contains(desc, "4K") {
			t.Errorf("重複キーワードが描写に残っているのだ: %q", desc)
		}
	})

	t.Run("アスペクト比が空なら末尾の断片は付かないのだ", func(t *testing.T) {
		e, err := NewEnhancer("documentary", "")
		if err != nil {
			t.Fatalf("Enhancer の構築に失敗したのだ: %v", err)
		}
		if got := e.Enhance("city street"); strings.Contains(got, "aspect ratio") {
			t.Errorf("アスペクト比の指定がないのに断片が付いているのだ: %q", got)
		}
	})
}

func TestLookup(t *testing.T) {
	t.Run("未知のプリセット名は ConfigurationError になるのだ", func(t *testing.T) {
		_, err := Lookup("not_a_preset")
		var cfgErr *domain.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("ConfigurationError になるはずなのだ: %v", err)
		}
	})

	t.Run("全プリセットが必須断片を持っているのだ", func(t *testing.T) {
		names := Names()
		if len(names) != 8 {
			t.Fatalf("プリセットは8種のはずなのだ: %d", len(names))
		}
		for _, name := range names {
			p, err := Lookup(name)
			if err != nil {
				t.Fatalf("Lookup(%q) が失敗したのだ: %v", name, err)
			}
			if p.Prefix == "" || p.Quality == "" || p.Lighting == "" || p.Mood == "" {
				t.Errorf("%s に空の断片があるのだ: %+v", name, p)
			}
		}
	})
}
