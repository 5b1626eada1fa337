package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-aiva-kit/pkg/domain"
)

const (
	// プロジェクト直下の成果物ファイル名
	ScriptFileName   = "script.txt"
	StateFileName    = "state.json"
	ManifestFileName = "manifest.json"

	// セグメントディレクトリ直下の成果物ファイル名
	SegmentTextFileName   = "text.txt"
	SegmentPromptFileName = "prompt.txt"
	SegmentImageFileName  = "image.png"

	mimeText  = "text/plain; charset=utf-8"
	mimeJSON  = "application/json; charset=utf-8"
	mimeImage = "image/png"
)

// Manager はプロジェクト成果物のレイアウトと永続化を管理します。
// remoteio を介するため、ローカルディスクと GCS の両方を透過的に扱えます。
type Manager struct {
	reader  remoteio.InputReader
	writer  remoteio.OutputWriter
	baseDir string // 出力先のベースディレクトリ (例: "output" または "gs://bucket/output")
}

// NewManager は出力マネージャを返します。
func NewManager(reader remoteio.InputReader, writer remoteio.OutputWriter, baseDir string) *Manager {
	return &Manager{
		reader:  reader,
		writer:  writer,
		baseDir: baseDir,
	}
}

// ProjectDir はスラグに対応するプロジェクトディレクトリのパスを返します。
func (m *Manager) ProjectDir(slug string) (string, error) {
	return ResolveOutputPath(m.baseDir, slug)
}

// WriteScript は生成済みの台本全文を script.txt として保存します。
func (m *Manager) WriteScript(ctx context.Context, projectDir, script string) error {
	return m.writeText(ctx, projectDir, ScriptFileName, script)
}

// WriteSegment はセグメントの原文と強化済みプロンプトを
// segment_NN/ 配下へ保存します。
func (m *Manager) WriteSegment(ctx context.Context, projectDir string, seg *domain.Segment) error {
	segDir, err := ResolveOutputPath(projectDir, seg.DirName())
	if err != nil {
		return err
	}
	if err := m.writeText(ctx, segDir, SegmentTextFileName, seg.Text); err != nil {
		return err
	}
	if seg.EnhancedPrompt != "" {
		if err := m.writeText(ctx, segDir, SegmentPromptFileName, seg.EnhancedPrompt); err != nil {
			return err
		}
	}
	return nil
}

// WriteSegmentImage は画像バイト列を segment_NN/image.png として保存し、
// 保存先パスを返します。
func (m *Manager) WriteSegmentImage(ctx context.Context, projectDir string, seg *domain.Segment, data []byte, mimeType string) (string, error) {
	segDir, err := ResolveOutputPath(projectDir, seg.DirName())
	if err != nil {
		return "", err
	}
	imagePath, err := ResolveOutputPath(segDir, SegmentImageFileName)
	if err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = mimeImage
	}
	if err := m.writer.Write(ctx, imagePath, bytes.NewReader(data), mimeType); err != nil {
		return "", &domain.IOFailure{Path: imagePath, Err: err}
	}
	return imagePath, nil
}

// SaveState はチェックポイント state.json を上書き保存します。
// 各セグメント完了のたびに呼ばれる前提で、常に全体を書き直します。
func (m *Manager) SaveState(ctx context.Context, projectDir string, st domain.State) error {
	return m.writeJSON(ctx, projectDir, StateFileName, st)
}

// LoadState はプロジェクトディレクトリから state.json を読み込みます。
// 再開時の入口であり、存在しない・壊れている場合は IOFailure を返します。
func (m *Manager) LoadState(ctx context.Context, projectDir string) (domain.State, error) {
	statePath, err := ResolveOutputPath(projectDir, StateFileName)
	if err != nil {
		return domain.State{}, err
	}

	rc, err := m.reader.Open(ctx, statePath)
	if err != nil {
		return domain.State{}, &domain.IOFailure{Path: statePath, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.State{}, &domain.IOFailure{Path: statePath, Err: err}
	}

	var st domain.State
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.State{}, &domain.IOFailure{
			Path: statePath,
			Err:  fmt.Errorf("state.jsonの解析に失敗しました: %w", err),
		}
	}
	if st.Slug == "" || st.Stage == "" {
		return domain.State{}, &domain.IOFailure{
			Path: statePath,
			Err:  errors.New("state.jsonに必須フィールド (slug, stage) がありません"),
		}
	}
	return st, nil
}

// WriteManifest は最終成果物 manifest.json を保存します。
func (m *Manager) WriteManifest(ctx context.Context, projectDir string, man domain.Manifest) error {
	return m.writeJSON(ctx, projectDir, ManifestFileName, man)
}

func (m *Manager) writeText(ctx context.Context, dir, fileName, content string) error {
	p, err := ResolveOutputPath(dir, fileName)
	if err != nil {
		return err
	}
	if err := m.writer.Write(ctx, p, strings.NewReader(content), mimeText); err != nil {
		return &domain.IOFailure{Path: p, Err: err}
	}
	return nil
}

func (m *Manager) writeJSON(ctx context.Context, dir, fileName string, v any) error {
	p, err := ResolveOutputPath(dir, fileName)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%s のJSONエンコードに失敗しました: %w", fileName, err)
	}
	if err := m.writer.Write(ctx, p, bytes.NewReader(data), mimeJSON); err != nil {
		return &domain.IOFailure{Path: p, Err: err}
	}
	return nil
}

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	if strings.HasPrefix(strings.ToLower(baseDir), "gs://") {
		u, err := url.Parse(baseDir)
		if err != nil {
			return "", fmt.Errorf("無効なGCS URIです: %w", err)
		}

		// url.JoinPath はパス部分のみを安全に結合し、スキーム部分を保護します
		u.Path, err = url.JoinPath(u.Path, fileName)
		if err != nil {
			return "", fmt.Errorf("GCSパスの結合に失敗しました: %w", err)
		}
		return u.String(), nil
	}
	return filepath.Join(baseDir, fileName), nil
}
