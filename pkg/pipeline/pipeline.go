package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-aiva-kit/pkg/domain"
	"github.com/shouni/go-aiva-kit/pkg/generator"
	"github.com/shouni/go-aiva-kit/pkg/output"
	"github.com/shouni/go-aiva-kit/pkg/prompts"
	"github.com/shouni/go-aiva-kit/pkg/retry"
	"github.com/shouni/go-aiva-kit/pkg/segmenter"
)

// Config はパイプライン1ランの動作パラメータです。
// 実行中は不変で、値の解決は internal/config 側で済ませておきます。
type Config struct {
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
	Audience     string
	ContentStyle string

	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	RateInterval time.Duration
	TotalTimeout time.Duration

	ContinueOnPartialFailure bool
	Parallel                 bool
}

// Pipeline は 台本生成 → 分割 → プロンプト強化 → 画像生成 → 確定 の
// 各ステージを順に進めるオーケストレーターです。ドメインオブジェクトの
// ミューテーションはすべてここで行い、下位層は純粋関数か外部呼び出しに徹します。
type Pipeline struct {
	cfg       Config
	scriptGen generator.ScriptGenerator
	imageGen  generator.ImageGenerator
	out       *output.Manager
	seg       segmenter.Segmenter
	enhancer  *prompts.Enhancer
	policy    retry.Policy
}

// New はパイプラインを組み立てます。未知のスタイルプリセットは
// この時点で ConfigurationError になります。
func New(cfg Config, scriptGen generator.ScriptGenerator, imageGen generator.ImageGenerator, out *output.Manager) (*Pipeline, error) {
	enhancer, err := prompts.NewEnhancer(cfg.StylePreset, cfg.AspectRatio)
	if err != nil {
		return nil, err
	}

	if cfg.TargetSegments <= 0 {
		cfg.TargetSegments = segmenter.DefaultTargetSegments
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = segmenter.DefaultDuration
	}

	seg := segmenter.New(cfg.TargetSegments, cfg.SegmentDuration)
	if cfg.MinSegments > 0 {
		seg.MinSegments = cfg.MinSegments
	}
	if cfg.MaxSegments > 0 {
		seg.MaxSegments = cfg.MaxSegments
	}
	if cfg.MinWordsPerSeg > 0 {
		seg.MinWords = cfg.MinWordsPerSeg
	}
	if cfg.MaxWordsPerSeg > 0 {
		seg.MaxWords = cfg.MaxWordsPerSeg
	}
	if cfg.MinScriptWords > 0 {
		seg.MinScriptWords = cfg.MinScriptWords
	}
	if cfg.MaxScriptWords > 0 {
		seg.MaxScriptWords = cfg.MaxScriptWords
	}

	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}

	return &Pipeline{
		cfg:       cfg,
		scriptGen: scriptGen,
		imageGen:  imageGen,
		out:       out,
		seg:       seg,
		enhancer:  enhancer,
		policy:    policy,
	}, nil
}

// Run はトピックから最終マニフェストまでの全ステージを実行します。
// 部分失敗の扱いは ContinueOnPartialFailure に従います。
func (p *Pipeline) Run(ctx context.Context, topic, title, videoType string, textModel, imageModel string) (*domain.Project, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	var perf domain.ManifestTimings

	project := &domain.Project{
		Slug:       output.Slugify(topic, started),
		Topic:      topic,
		Title:      title,
		VideoType:  videoType,
		Stage:      domain.StageInit,
		TextModel:  textModel,
		ImageModel: imageModel,
		CreatedAt:  started,
		UpdatedAt:  started,
	}

	projectDir, err := p.out.ProjectDir(project.Slug)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "パイプラインを開始するのだ",
		"slug", project.Slug, "topic", topic, "dir", projectDir)

	if err := p.checkpoint(ctx, projectDir, project); err != nil {
		return nil, err
	}

	hints, err := p.runScript(ctx, projectDir, project, &perf)
	if err != nil {
		return project, p.fail(ctx, projectDir, project, err)
	}
	if err := p.runSegmentation(ctx, projectDir, project, hints, &perf); err != nil {
		return project, p.fail(ctx, projectDir, project, err)
	}
	if err := p.runPrompts(ctx, projectDir, project); err != nil {
		return project, p.fail(ctx, projectDir, project, err)
	}
	if err := p.runImages(ctx, projectDir, project, &perf); err != nil {
		return project, p.fail(ctx, projectDir, project, err)
	}

	perf.TotalSeconds = time.Since(started).Seconds()
	if err := p.finalize(ctx, projectDir, project, perf); err != nil {
		return project, err
	}
	return project, nil
}

// RunScriptOnly は台本生成と分割だけを実行します（画像は作りません）。
// 生成物の検分やプロンプトの調整に使います。
func (p *Pipeline) RunScriptOnly(ctx context.Context, topic, title, videoType string, textModel string) (*domain.Project, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	var perf domain.ManifestTimings

	project := &domain.Project{
		Slug:      output.Slugify(topic, started),
		Topic:     topic,
		Title:     title,
		VideoType: videoType,
		Stage:     domain.StageInit,
		TextModel: textModel,
		CreatedAt: started,
		UpdatedAt: started,
	}

	projectDir, err := p.out.ProjectDir(project.Slug)
	if err != nil {
		return nil, err
	}

	hints, err := p.runScript(ctx, projectDir, project, &perf)
	if err != nil {
		return project, p.fail(ctx, projectDir, project, err)
	}
	if err := p.runSegmentation(ctx, projectDir, project, hints, &perf); err != nil {
		return project, p.fail(ctx, projectDir, project, err)
	}
	if err := p.runPrompts(ctx, projectDir, project); err != nil {
		return project, p.fail(ctx, projectDir, project, err)
	}
	return project, nil
}

// Resume は state.json を読み込み、中断したステージから処理を再開します。
// 生成済み（generated）のセグメントはスキップされ、API呼び出しは発生しません。
func (p *Pipeline) Resume(ctx context.Context, projectDir string) (*domain.Project, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	st, err := p.out.LoadState(ctx, projectDir)
	if err != nil {
		return nil, err
	}
	project := domain.RestoreProject(st)

	// 全セグメント生成済みの finalized だけが「やることなし」です。
	// failed や、失敗セグメントを残した finalized は未完了分を拾い直します。
	if project.Stage == domain.StageFinalized &&
		project.Segments.CountByStatus(domain.StatusGenerated) == len(project.Segments) {
		slog.InfoContext(ctx, "プロジェクトはすでに完了しているのだ",
			"slug", project.Slug, "stage", project.Stage)
		return project, nil
	}
	if project.Stage.Terminal() {
		restart := resumeStage(project)
		slog.InfoContext(ctx, "終端ステージから処理を巻き戻すのだ",
			"slug", project.Slug, "from", project.Stage, "to", restart)
		project.Stage = restart
	}

	started := time.Now()
	var perf domain.ManifestTimings
	slog.InfoContext(ctx, "プロジェクトを再開するのだ",
		"slug", project.Slug, "stage", project.Stage,
		"last_completed", st.LastCompleted)

	// 前回どこまで進んだかに応じて、残りのステージだけを実行します。
	// 台本ステージを通らない再開では映像ヒントは復元できないため、
	// 描写はセグメント本文へのフォールバックになります。
	var hints []string
	if project.Stage == domain.StageInit {
		hints, err = p.runScript(ctx, projectDir, project, &perf)
		if err != nil {
			return project, p.fail(ctx, projectDir, project, err)
		}
	}
	if project.Stage == domain.StageScriptReady {
		if err := p.runSegmentation(ctx, projectDir, project, hints, &perf); err != nil {
			return project, p.fail(ctx, projectDir, project, err)
		}
	}
	if project.Stage == domain.StageSegmented {
		if err := p.runPrompts(ctx, projectDir, project); err != nil {
			return project, p.fail(ctx, projectDir, project, err)
		}
	}
	if project.Stage == domain.StagePromptsReady {
		if err := p.runImages(ctx, projectDir, project, &perf); err != nil {
			return project, p.fail(ctx, projectDir, project, err)
		}
	}

	perf.TotalSeconds = time.Since(started).Seconds()
	if err := p.finalize(ctx, projectDir, project, perf); err != nil {
		return project, err
	}
	return project, nil
}

// resumeStage は終端ステージへ落ちたプロジェクトの巻き戻し先を、
// 残っている成果物から決定します。
func resumeStage(p *domain.Project) domain.Stage {
	switch {
	case p.Script == "":
		return domain.StageInit
	case len(p.Segments) == 0:
		return domain.StageScriptReady
	case p.Segments[0].EnhancedPrompt == "":
		return domain.StageSegmented
	default:
		return domain.StagePromptsReady
	}
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.TotalTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.TotalTimeout)
	}
	return context.WithCancel(ctx)
}

// runScript は台本を生成して script.txt へ保存します。コラボレーターが
// セグメント順の映像ヒントを返した場合は、分割ステージへ引き継ぎます。
func (p *Pipeline) runScript(ctx context.Context, projectDir string, project *domain.Project, perf *domain.ManifestTimings) ([]string, error) {
	stageStart := time.Now()

	target := (p.seg.MinScriptWords + p.seg.MaxScriptWords) / 2
	req := generator.ScriptRequest{
		Topic:       project.Topic,
		VideoType:   project.VideoType,
		Audience:    p.cfg.Audience,
		Style:       p.cfg.ContentStyle,
		TargetWords: target,
	}

	var result generator.ScriptResult
	err := p.policy.Do(ctx, func() error {
		var genErr error
		result, genErr = p.scriptGen.GenerateScript(ctx, req)
		return genErr
	})
	if err != nil {
		return nil, &domain.GenerationError{Op: "script", Attempts: p.policy.MaxAttempts, Err: err}
	}

	project.Script = result.Script
	project.Stage = domain.StageScriptReady
	project.UpdatedAt = time.Now()
	perf.ScriptSeconds = time.Since(stageStart).Seconds()
	slog.InfoContext(ctx, "台本の生成が完了したのだ",
		"words", len(result.Script), "hints", len(result.VisualHints),
		"duration", time.Since(stageStart))

	if err := p.out.WriteScript(ctx, projectDir, project.Script); err != nil {
		return nil, err
	}
	return result.VisualHints, p.checkpoint(ctx, projectDir, project)
}

// runSegmentation は台本を固定尺セグメントへ分割します。台本ステージから
// 引き継いだ映像ヒントがあれば、対応するセグメントの描写として採用します。
// 境界違反の ValidationError は警告ログに残して続行します（検証は
// 報告のためであり、ベストエフォートの成果物を捨てる理由にはなりません）。
func (p *Pipeline) runSegmentation(ctx context.Context, projectDir string, project *domain.Project, hints []string, perf *domain.ManifestTimings) error {
	stageStart := time.Now()

	segments, err := p.seg.Split(project.Script)
	if err != nil {
		var valErr *domain.ValidationError
		if !errors.As(err, &valErr) || segments == nil {
			return err
		}
		for _, issue := range valErr.Issues {
			slog.WarnContext(ctx, "セグメント境界の検証に引っかかったのだ", "issue", issue)
		}
	}

	for i := range segments {
		if i < len(hints) && hints[i] != "" {
			segments[i].VisualDescription = hints[i]
		}
	}

	project.Segments = segments
	project.Stage = domain.StageSegmented
	project.UpdatedAt = time.Now()
	perf.SegmentationSeconds = time.Since(stageStart).Seconds()
	slog.InfoContext(ctx, "台本の分割が完了したのだ",
		"segments", len(segments), "total_seconds", segments.TotalDuration())

	return p.checkpoint(ctx, projectDir, project)
}

// runPrompts は各セグメントの強化済みプロンプトを決定論的に構築し、
// 原文とあわせて segment_NN/ へ書き出します。
func (p *Pipeline) runPrompts(ctx context.Context, projectDir string, project *domain.Project) error {
	for i := range project.Segments {
		seg := &project.Segments[i]
		if seg.VisualDescription == "" {
			// 映像ヒントがない場合はナレーション本文をそのまま描写として使います
			seg.VisualDescription = seg.Text
		}
		seg.EnhancedPrompt = p.enhancer.Enhance(seg.VisualDescription)

		if err := p.out.WriteSegment(ctx, projectDir, seg); err != nil {
			return err
		}
	}

	project.Stage = domain.StagePromptsReady
	project.UpdatedAt = time.Now()
	slog.InfoContext(ctx, "プロンプト強化が完了したのだ",
		"segments", len(project.Segments), "preset", p.enhancer.PresetName())

	return p.checkpoint(ctx, projectDir, project)
}

// runImages は全セグメントの画像を生成します。生成済みセグメントは
// スキップされるため、再開時にも安全に呼べます。
func (p *Pipeline) runImages(ctx context.Context, projectDir string, project *domain.Project, perf *domain.ManifestTimings) error {
	stageStart := time.Now()

	var err error
	if p.cfg.Parallel {
		err = p.renderParallel(ctx, projectDir, project)
	} else {
		err = p.renderSequential(ctx, projectDir, project)
	}
	if err != nil {
		return err
	}

	project.Stage = domain.StageImagesRendered
	project.UpdatedAt = time.Now()
	perf.RenderSeconds = time.Since(stageStart).Seconds()
	slog.InfoContext(ctx, "画像生成ステージが完了したのだ",
		"generated", project.Segments.CountByStatus(domain.StatusGenerated),
		"failed", project.Segments.CountByStatus(domain.StatusFailed),
		"duration", time.Since(stageStart))

	return p.checkpoint(ctx, projectDir, project)
}

// renderSequential は1枚ずつ順番に生成し、毎セグメント後にチェックポイントを
// 保存します。中断してもそこまでの進捗が state.json に残ります。
func (p *Pipeline) renderSequential(ctx context.Context, projectDir string, project *domain.Project) error {
	limiter := p.newLimiter()

	for i := range project.Segments {
		seg := &project.Segments[i]
		if seg.Status == domain.StatusGenerated {
			slog.InfoContext(ctx, "生成済みセグメントをスキップするのだ", "segment", seg.DirName())
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return &domain.GenerationError{Op: seg.DirName(), Attempts: seg.Attempts, Err: err}
		}

		if err := p.renderSegment(ctx, projectDir, project, seg); err != nil {
			if !p.continuable(err) {
				return err
			}
			slog.WarnContext(ctx, "セグメントの画像生成に失敗したが続行するのだ",
				"segment", seg.DirName(), "error", err)
		}

		// セグメントごとのチェックポイント。ここで落ちたら再開で拾えるのだ
		if err := p.checkpoint(ctx, projectDir, project); err != nil {
			return err
		}
	}
	return nil
}

// renderParallel は errgroup で並列に生成します。各ゴルーチンは自分の
// インデックスのセグメントだけを書き換えるため、ロックは不要です。
// チェックポイントは競合を避けるため全件完了後に1回だけ保存します。
func (p *Pipeline) renderParallel(ctx context.Context, projectDir string, project *domain.Project) error {
	eg, egCtx := errgroup.WithContext(ctx)
	limiter := p.newLimiter()
	slog.InfoContext(ctx, "並列画像生成を開始するのだ",
		"count", len(project.Segments), "interval", p.cfg.RateInterval)

	for i := range project.Segments {
		seg := &project.Segments[i]
		if seg.Status == domain.StatusGenerated {
			continue
		}

		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return &domain.GenerationError{Op: seg.DirName(), Attempts: seg.Attempts, Err: err}
			}
			if err := p.renderSegment(egCtx, projectDir, project, seg); err != nil {
				if !p.continuable(err) {
					return err
				}
				slog.WarnContext(egCtx, "セグメントの画像生成に失敗したが続行するのだ",
					"segment", seg.DirName(), "error", err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	return nil
}

// renderSegment は1セグメントの画像生成・保存・状態更新を行います。
// 再試行はここでまとめて適用され、失敗はセグメントに記録されます。
func (p *Pipeline) renderSegment(ctx context.Context, projectDir string, project *domain.Project, seg *domain.Segment) error {
	slog.InfoContext(ctx, "セグメント画像を生成中...",
		"segment", seg.DirName(), "start", seg.StartTime, "end", seg.EndTime)

	var result generator.ImageResult
	attempts := 0
	err := p.policy.Do(ctx, func() error {
		attempts++
		var genErr error
		result, genErr = p.imageGen.GenerateImage(ctx, generator.ImageRequest{
			Prompt:      seg.EnhancedPrompt,
			AspectRatio: p.cfg.AspectRatio,
			Format:      "png",
		})
		return genErr
	})
	seg.Attempts += attempts
	seg.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err != nil {
		// 合計タイムアウトに達した場合もセグメント失敗として記録します
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("画像生成が制限時間に達しました: %w", err)
		}
		seg.Status = domain.StatusFailed
		seg.Error = err.Error()
		return &domain.GenerationError{Op: seg.DirName(), Attempts: seg.Attempts, Err: err}
	}

	imagePath, err := p.out.WriteSegmentImage(ctx, projectDir, seg, result.Data, result.MimeType)
	if err != nil {
		// 永続化の失敗は再試行対象外。セグメントではなくランの失敗です
		seg.Status = domain.StatusFailed
		seg.Error = err.Error()
		return err
	}

	seg.ImagePath = imagePath
	seg.Status = domain.StatusGenerated
	seg.Error = ""
	return nil
}

// continuable は、このセグメントの失敗を飲み込んでランを続行してよいかを
// 判定します。続行できるのはAPIの再試行を使い切った GenerationError だけで、
// IOFailure などの永続化失敗はマニフェストの整合性を保証できないため
// ランごと中断します。
func (p *Pipeline) continuable(err error) bool {
	if !p.cfg.ContinueOnPartialFailure {
		return false
	}
	var genErr *domain.GenerationError
	return errors.As(err, &genErr)
}

// finalize は集計済みマニフェストを書き出し、ステージを確定します。
// 失敗セグメントが残っていてもマニフェストには全件載せます。
func (p *Pipeline) finalize(ctx context.Context, projectDir string, project *domain.Project, perf domain.ManifestTimings) error {
	project.Stage = domain.StageFinalized
	project.UpdatedAt = time.Now()

	manifest := domain.BuildManifest(project, perf)
	if err := p.out.WriteManifest(ctx, projectDir, manifest); err != nil {
		return err
	}
	if err := p.checkpoint(ctx, projectDir, project); err != nil {
		return err
	}

	slog.InfoContext(ctx, "パイプラインが完了したのだ",
		"slug", project.Slug,
		"generated", manifest.Statistics.GeneratedSegments,
		"failed", manifest.Statistics.FailedSegments,
		"total_seconds", perf.TotalSeconds)
	return nil
}

// fail は致命的エラー時にステージを failed へ落として状態を保存します。
// 保存自体の失敗は元のエラーを覆い隠さないようログに留めます。
func (p *Pipeline) fail(ctx context.Context, projectDir string, project *domain.Project, cause error) error {
	project.Stage = domain.StageFailed
	project.UpdatedAt = time.Now()
	if err := p.checkpoint(context.WithoutCancel(ctx), projectDir, project); err != nil {
		slog.ErrorContext(ctx, "失敗状態の保存に失敗したのだ", "error", err)
	}
	return cause
}

func (p *Pipeline) checkpoint(ctx context.Context, projectDir string, project *domain.Project) error {
	return p.out.SaveState(ctx, projectDir, project.Snapshot())
}

func (p *Pipeline) newLimiter() *rate.Limiter {
	interval := p.cfg.RateInterval
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	// Burst 2 により、開始直後に2枚までは同時にリクエストを開始できます
	return rate.NewLimiter(rate.Every(interval), 2)
}
