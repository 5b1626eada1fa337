package domain

import (
	"fmt"
	"strings"
)

// エラー分類のルール:
//   - ValidationError / ConfigurationError は再試行の対象外で即座に表面化する
//   - GenerationError だけがバックオフ付き再試行ループを通る
//   - IOFailure はマニフェストの整合性を保証できないためランを中断する

// ValidationError は入力（台本やセグメントの形）が不正な場合を表します。
// Issues には検出した問題を全件保持し、呼び出し側が継続可否を判断します。
type ValidationError struct {
	Issues []string
}

func NewValidationError(issues ...string) *ValidationError {
	return &ValidationError{Issues: issues}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Issues, "; ")
}

// ConfigurationError は設定値や認証情報の不備を表します。致命的で再試行しません。
type ConfigurationError struct {
	Reason string
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// GenerationError は外部APIが再試行を使い切っても失敗したことを表します。
// セグメント単位では記録して継続、ラン単位では致命的です。
type GenerationError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %s (attempts=%d): %v", e.Op, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IOFailure はローカル/リモート永続化の失敗を表します。
// リトライはAPI呼び出し専用の方針なので、I/Oはそのまま表面化させるのだ。
type IOFailure struct {
	Path string
	Err  error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("io failure at %s: %v", e.Path, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }
