package domain

import "time"

// Stage はパイプライン全体の進行状態を表します。
// 各ステージは前段の成果物が揃うまで開始されません。
type Stage string

const (
	StageInit           Stage = "init"
	StageScriptReady    Stage = "script_ready"
	StageSegmented      Stage = "segmented"
	StagePromptsReady   Stage = "prompts_ready"
	StageImagesRendered Stage = "images_rendered"
	StageFinalized      Stage = "finalized"
	StageFailed         Stage = "failed"
)

// Terminal はこのステージが終端（これ以上遷移しない）かどうかを返します。
func (st Stage) Terminal() bool {
	return st == StageFinalized || st == StageFailed
}

// Project は1回の生成ランを表す集約です。オーケストレーターだけが
// これをミュートし、永続化層はシリアライズのみを担当します。
type Project struct {
	Slug       string
	Topic      string
	Title      string
	VideoType  string
	Script     string
	Segments   Segments
	Stage      Stage
	TextModel  string
	ImageModel string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// State は中断からの再開に使う永続スナップショットです。
// manifest.json とは別に state.json として保存されます。
type State struct {
	Slug          string   `json:"slug"`
	Topic         string   `json:"topic"`
	Title         string   `json:"title,omitempty"`
	VideoType     string   `json:"video_type"`
	Stage         Stage    `json:"stage"`
	Script        string   `json:"script,omitempty"`
	TextModel     string   `json:"text_model"`
	ImageModel    string   `json:"image_model"`
	Segments      Segments `json:"segments"`
	LastCompleted int      `json:"last_completed_index"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// Snapshot は再開用の State を切り出します。
func (p *Project) Snapshot() State {
	last := 0
	for _, s := range p.Segments {
		if s.Status == StatusGenerated && s.Index > last {
			last = s.Index
		}
	}
	return State{
		Slug:          p.Slug,
		Topic:         p.Topic,
		Title:         p.Title,
		VideoType:     p.VideoType,
		Stage:         p.Stage,
		Script:        p.Script,
		TextModel:     p.TextModel,
		ImageModel:    p.ImageModel,
		Segments:      p.Segments,
		LastCompleted: last,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

// RestoreProject は State からプロジェクトを復元するのだ。
// 再開時はここで作った Project に対して未完了セグメントだけを処理し直します。
func RestoreProject(st State) *Project {
	created, _ := time.Parse(time.RFC3339, st.CreatedAt)
	return &Project{
		Slug:       st.Slug,
		Topic:      st.Topic,
		Title:      st.Title,
		VideoType:  st.VideoType,
		Script:     st.Script,
		Segments:   st.Segments,
		Stage:      st.Stage,
		TextModel:  st.TextModel,
		ImageModel: st.ImageModel,
		CreatedAt:  created,
		UpdatedAt:  time.Now(),
	}
}
