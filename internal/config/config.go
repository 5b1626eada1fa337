package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-aiva-kit/pkg/domain"
)

// デフォルト値の定義なのだ（5分尺 = 38セグメント × 8秒）
const (
	DefaultModel      = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-3-pro-image-preview"

	DefaultTargetSegments  = 38
	DefaultSegmentDuration = 8.0
	DefaultMinSegments     = 35
	DefaultMaxSegments     = 40
	DefaultMinWordsPerSeg  = 10
	DefaultMaxWordsPerSeg  = 25
	DefaultMinScriptWords  = 500
	DefaultMaxScriptWords  = 800

	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMultiplier  = 2.0

	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRateInterval = 8 * time.Second
	DefaultTotalTimeout = 45 * time.Minute

	DefaultOutputDir   = "output"
	DefaultStylePreset = "cinematic_4k"
	DefaultAspectRatio = "16:9"
	DefaultImageFormat = "png"
	DefaultAudience    = "general audience"
	DefaultStyle       = "engaging and informative"
)

// Config はアプリケーション全体の設定なのだ。解決の優先順位は
// デフォルト → 環境変数 → settings.json → CLIフラグ の順で、
// Load 完了後は不変として扱うのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	TargetSegments  int
	SegmentDuration float64
	MinSegments     int
	MaxSegments     int
	MinWordsPerSeg  int
	MaxWordsPerSeg  int
	MinScriptWords  int
	MaxScriptWords  int

	StylePreset  string
	AspectRatio  string
	ImageFormat  string
	Audience     string
	ContentStyle string

	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	HTTPTimeout  time.Duration
	RateInterval time.Duration
	TotalTimeout time.Duration

	ContinueOnPartialFailure bool
	Parallel                 bool

	OutputDir string

	Options GenerateOptions
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	Title        string // --title
	VideoType    string // --video-type: "short" または "long-form"
	OutputDir    string // --output-dir
	SettingsFile string // --settings
	StylePreset  string // --style-preset
	TextModel    string // --model
	ImageModel   string // --image-model
	DryRun       bool   // --dry-run
}

// Load はデフォルト値に環境変数と settings.json を重ねて設定を構築するのだ。
func Load(opts GenerateOptions) (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),

		TargetSegments:  envInt("AIVA_TARGET_SEGMENTS", DefaultTargetSegments),
		SegmentDuration: envFloat("AIVA_SEGMENT_DURATION", DefaultSegmentDuration),
		MinSegments:     DefaultMinSegments,
		MaxSegments:     DefaultMaxSegments,
		MinWordsPerSeg:  DefaultMinWordsPerSeg,
		MaxWordsPerSeg:  DefaultMaxWordsPerSeg,
		MinScriptWords:  DefaultMinScriptWords,
		MaxScriptWords:  DefaultMaxScriptWords,

		StylePreset:  envutil.GetEnv("AIVA_STYLE_PRESET", DefaultStylePreset),
		AspectRatio:  envutil.GetEnv("AIVA_ASPECT_RATIO", DefaultAspectRatio),
		ImageFormat:  DefaultImageFormat,
		Audience:     envutil.GetEnv("AIVA_AUDIENCE", DefaultAudience),
		ContentStyle: envutil.GetEnv("AIVA_CONTENT_STYLE", DefaultStyle),

		MaxAttempts: envInt("AIVA_MAX_RETRIES", DefaultMaxAttempts),
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,

		HTTPTimeout:  DefaultHTTPTimeout,
		RateInterval: envDuration("AIVA_RATE_INTERVAL", DefaultRateInterval),
		TotalTimeout: envDuration("AIVA_TOTAL_TIMEOUT", DefaultTotalTimeout),

		ContinueOnPartialFailure: envBool("AIVA_CONTINUE_ON_FAILURE", true),
		Parallel:                 envBool("AIVA_PARALLEL", false),

		OutputDir: envutil.GetEnv("AIVA_OUTPUT_DIR", DefaultOutputDir),

		Options: opts,
	}

	if opts.SettingsFile != "" {
		if err := cfg.applySettingsFile(opts.SettingsFile); err != nil {
			return nil, err
		}
	}

	// CLIフラグは最優先で上書きするのだ
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.StylePreset != "" {
		cfg.StylePreset = opts.StylePreset
	}
	if opts.TextModel != "" {
		cfg.GeminiModel = opts.TextModel
	}
	if opts.ImageModel != "" {
		cfg.GeminiImageModel = opts.ImageModel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は実行前の整合性チェックなのだ。APIキーの欠落は
// ここで止めて、APIに最初のリクエストを投げる前に気付けるようにするのだ。
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return domain.NewConfigurationError(
			"GEMINI_API_KEY が設定されていません (.env または環境変数で指定してください)")
	}
	if c.TargetSegments < 1 {
		return domain.NewConfigurationError("target_segments は1以上が必要です: %d", c.TargetSegments)
	}
	if c.SegmentDuration <= 0 {
		return domain.NewConfigurationError("segment_duration は正の値が必要です: %g", c.SegmentDuration)
	}
	if c.MaxAttempts < 1 {
		return domain.NewConfigurationError("max_retries は1以上が必要です: %d", c.MaxAttempts)
	}
	return nil
}

// settingsFile は settings.json の形なのだ。ポインタフィールドにして
// 「書かれていない項目は触らない」上書きを実現しているのだ。
type settingsFile struct {
	TargetSegments  *int     `json:"target_segments,omitempty"`
	SegmentDuration *float64 `json:"segment_duration,omitempty"`
	MinSegments     *int     `json:"min_segments,omitempty"`
	MaxSegments     *int     `json:"max_segments,omitempty"`
	MinWordsPerSeg  *int     `json:"min_words_per_segment,omitempty"`
	MaxWordsPerSeg  *int     `json:"max_words_per_segment,omitempty"`
	MinScriptWords  *int     `json:"min_script_words,omitempty"`
	MaxScriptWords  *int     `json:"max_script_words,omitempty"`

	StylePreset  *string `json:"style_preset,omitempty"`
	AspectRatio  *string `json:"aspect_ratio,omitempty"`
	Audience     *string `json:"audience,omitempty"`
	ContentStyle *string `json:"content_style,omitempty"`

	TextModel  *string `json:"text_model,omitempty"`
	ImageModel *string `json:"image_model,omitempty"`

	MaxRetries     *int     `json:"max_retries,omitempty"`
	BaseDelaySec   *float64 `json:"base_delay_seconds,omitempty"`
	Multiplier     *float64 `json:"backoff_multiplier,omitempty"`
	RateIntervalS  *float64 `json:"rate_interval_seconds,omitempty"`
	TotalTimeoutS  *float64 `json:"total_timeout_seconds,omitempty"`
	ContinueOnFail *bool    `json:"continue_on_partial_failure,omitempty"`
	Parallel       *bool    `json:"parallel_processing,omitempty"`

	OutputDir *string `json:"output_dir,omitempty"`
}

func (c *Config) applySettingsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &domain.IOFailure{Path: path, Err: err}
	}

	var sf settingsFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return domain.NewConfigurationError("settingsファイルの解析に失敗しました (%s): %v", path, err)
	}

	setInt(&c.TargetSegments, sf.TargetSegments)
	setFloat(&c.SegmentDuration, sf.SegmentDuration)
	setInt(&c.MinSegments, sf.MinSegments)
	setInt(&c.MaxSegments, sf.MaxSegments)
	setInt(&c.MinWordsPerSeg, sf.MinWordsPerSeg)
	setInt(&c.MaxWordsPerSeg, sf.MaxWordsPerSeg)
	setInt(&c.MinScriptWords, sf.MinScriptWords)
	setInt(&c.MaxScriptWords, sf.MaxScriptWords)
	setString(&c.StylePreset, sf.StylePreset)
	setString(&c.AspectRatio, sf.AspectRatio)
	setString(&c.Audience, sf.Audience)
	setString(&c.ContentStyle, sf.ContentStyle)
	setString(&c.GeminiModel, sf.TextModel)
	setString(&c.GeminiImageModel, sf.ImageModel)
	setInt(&c.MaxAttempts, sf.MaxRetries)
	setString(&c.OutputDir, sf.OutputDir)

	if sf.BaseDelaySec != nil {
		c.BaseDelay = time.Duration(*sf.BaseDelaySec * float64(time.Second))
	}
	setFloat(&c.Multiplier, sf.Multiplier)
	if sf.RateIntervalS != nil {
		c.RateInterval = time.Duration(*sf.RateIntervalS * float64(time.Second))
	}
	if sf.TotalTimeoutS != nil {
		c.TotalTimeout = time.Duration(*sf.TotalTimeoutS * float64(time.Second))
	}
	if sf.ContinueOnFail != nil {
		c.ContinueOnPartialFailure = *sf.ContinueOnFail
	}
	if sf.Parallel != nil {
		c.Parallel = *sf.Parallel
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func envInt(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// PipelineDescription はドライラン時に表示する実行計画の要約なのだ。
func (c *Config) PipelineDescription() string {
	return fmt.Sprintf(
		"segments=%d duration=%.1fs preset=%s aspect=%s model=%s image_model=%s retries=%d parallel=%t output=%s",
		c.TargetSegments, c.SegmentDuration, c.StylePreset, c.AspectRatio,
		c.GeminiModel, c.GeminiImageModel, c.MaxAttempts, c.Parallel, c.OutputDir,
	)
}
