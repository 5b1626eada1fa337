package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSegment_JSON(t *testing.T) {
	t.Run("Segment構造体が正しくJSON変換できるのだ", func(t *testing.T) {
		seg := Segment{
			Index:             5,
			StartTime:         32.0,
			EndTime:           40.0,
			Text:              "the lighthouse keeper climbs the spiral stairs",
			WordCount:         7,
			VisualDescription: "a keeper climbing spiral stairs inside a lighthouse",
			EnhancedPrompt:    "Ultra-realistic cinematic shot, of a keeper climbing",
			Status:            StatusGenerated,
			ImagePath:         "output/test/segment_05/image.png",
		}

		data, err := json.Marshal(seg)
		if err != nil {
			t.Fatalf("Marshal失敗なのだ: %v", err)
		}

		var decoded Segment
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal失敗なのだ: %v", err)
		}
		if decoded != seg {
			t.Errorf("変換前後でデータが一致しないのだ。期待: %+v, 実際: %+v", seg, decoded)
		}
		// JSONキーはスネークケースで固定なのだ
		for _, key := range []string{"start_time", "end_time", "word_count", "visual_description", "enhanced_prompt", "image_path"} {
			if !strings.Contains(string(data), `"`+key+`"`) {
				t.Errorf("JSONキー %q が見つからないのだ: %s", key, data)
			}
		}
	})
}

func TestSegments_Aggregates(t *testing.T) {
	segs := Segments{
		{Index: 1, StartTime: 0, EndTime: 8, Status: StatusGenerated},
		{Index: 2, StartTime: 8, EndTime: 16, Status: StatusFailed, Error: "generation failed"},
		{Index: 3, StartTime: 16, EndTime: 24, Status: StatusGenerated},
	}

	t.Run("ステータスごとの集計ができるのだ", func(t *testing.T) {
		if n := segs.CountByStatus(StatusGenerated); n != 2 {
			t.Errorf("generated の数が違うのだ: %d", n)
		}
		if n := segs.CountByStatus(StatusFailed); n != 1 {
			t.Errorf("failed の数が違うのだ: %d", n)
		}
	})

	t.Run("失敗セグメントのエラーはディレクトリ名付きで集まるのだ", func(t *testing.T) {
		errs := segs.CollectErrors()
		if len(errs) != 1 {
			t.Fatalf("エラーは1件のはずなのだ: %v", errs)
		}
		if errs[0] != "segment_02: generation failed" {
			t.Errorf("エラーの書式が違うのだ: %s", errs[0])
		}
	})

	t.Run("合計尺は最終セグメントの終了時刻なのだ", func(t *testing.T) {
		if d := segs.TotalDuration(); d != 24.0 {
			t.Errorf("合計尺が違うのだ: %g", d)
		}
	})
}

func TestProject_Snapshot(t *testing.T) {
	t.Run("スナップショットから元のプロジェクトが復元できるのだ", func(t *testing.T) {
		created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		p := &Project{
			Slug:       "deep_sea_creatures_20260801_120000",
			Topic:      "deep sea creatures",
			VideoType:  "long-form",
			Script:     "the ocean floor hides strange life",
			Stage:      StagePromptsReady,
			TextModel:  "gemini-3-flash-preview",
			ImageModel: "gemini-3-pro-image-preview",
			Segments: Segments{
				{Index: 1, Status: StatusGenerated},
				{Index: 2, Status: StatusPending},
			},
			CreatedAt: created,
		}

		st := p.Snapshot()
		if st.LastCompleted != 1 {
			t.Errorf("最後に完了したインデックスが違うのだ: %d", st.LastCompleted)
		}
		if st.Stage != StagePromptsReady {
			t.Errorf("ステージが保持されないのだ: %s", st.Stage)
		}

		restored := RestoreProject(st)
		if restored.Slug != p.Slug || restored.Topic != p.Topic || restored.Script != p.Script {
			t.Error("復元したプロジェクトの基本情報が一致しないのだ")
		}
		if !restored.CreatedAt.Equal(created) {
			t.Errorf("作成時刻が往復で崩れたのだ: %v", restored.CreatedAt)
		}
		if len(restored.Segments) != 2 || restored.Segments[0].Status != StatusGenerated {
			t.Error("セグメントの進捗が復元されないのだ")
		}
	})

	t.Run("state.jsonのキーは固定なのだ", func(t *testing.T) {
		p := &Project{Slug: "s", Topic: "t", Stage: StageInit}
		data, err := json.Marshal(p.Snapshot())
		if err != nil {
			t.Fatalf("Marshal失敗なのだ: %v", err)
		}
		for _, key := range []string{"slug", "topic", "stage", "last_completed_index", "created_at", "updated_at"} {
			if !strings.Contains(string(data), `"`+key+`"`) {
				t.Errorf("JSONキー %q が見つからないのだ: %s", key, data)
			}
		}
	})
}

func TestStage_Terminal(t *testing.T) {
	t.Run("finalizedとfailedだけが終端なのだ", func(t *testing.T) {
		for _, st := range []Stage{StageInit, StageScriptReady, StageSegmented, StagePromptsReady, StageImagesRendered} {
			if st.Terminal() {
				t.Errorf("%s は終端ではないはずなのだ", st)
			}
		}
		for _, st := range []Stage{StageFinalized, StageFailed} {
			if !st.Terminal() {
				t.Errorf("%s は終端のはずなのだ", st)
			}
		}
	})
}

func TestBuildManifest(t *testing.T) {
	t.Run("失敗セグメントも黙って落とさず全件載るのだ", func(t *testing.T) {
		p := &Project{
			Slug:       "test_20260801_120000",
			Topic:      "test",
			Stage:      StageFinalized,
			TextModel:  "gemini-3-flash-preview",
			ImageModel: "gemini-3-pro-image-preview",
			CreatedAt:  time.Now(),
			Segments: Segments{
				{Index: 1, StartTime: 0, EndTime: 8, WordCount: 17, Status: StatusGenerated},
				{Index: 2, StartTime: 8, EndTime: 16, WordCount: 18, Status: StatusFailed, Error: "api exhausted"},
			},
		}

		m := BuildManifest(p, ManifestTimings{TotalSeconds: 120.5})
		if m.Statistics.TotalSegments != 2 {
			t.Errorf("総数が違うのだ: %d", m.Statistics.TotalSegments)
		}
		if m.Statistics.GeneratedSegments != 1 || m.Statistics.FailedSegments != 1 {
			t.Errorf("成功・失敗の集計が違うのだ: %+v", m.Statistics)
		}
		if m.Statistics.ScriptWordCount != 35 {
			t.Errorf("語数集計が違うのだ: %d", m.Statistics.ScriptWordCount)
		}
		if len(m.Segments) != 2 {
			t.Error("全セグメントがマニフェストに載るはずなのだ")
		}
		if len(m.Errors) != 1 || !strings.Contains(m.Errors[0], "segment_02") {
			t.Errorf("失敗の記録が違うのだ: %v", m.Errors)
		}
		if m.Performance.TotalSeconds != 120.5 {
			t.Errorf("計測値が引き継がれないのだ: %g", m.Performance.TotalSeconds)
		}
	})
}

func TestErrors(t *testing.T) {
	t.Run("GenerationErrorは元のエラーへUnwrapできるのだ", func(t *testing.T) {
		inner := &ConfigurationError{Reason: "missing key"}
		gen := &GenerationError{Op: "segment_01", Attempts: 3, Err: inner}
		var cfgErr *ConfigurationError
		if !errors.As(gen, &cfgErr) {
			t.Error("Unwrap経由で内側のエラーに到達できるはずなのだ")
		}
	})

	t.Run("ValidationErrorは全件の問題を1つのメッセージにまとめるのだ", func(t *testing.T) {
		err := NewValidationError("too short", "too many segments")
		msg := err.Error()
		if !strings.Contains(msg, "too short") || !strings.Contains(msg, "too many segments") {
			t.Errorf("問題が欠落しているのだ: %s", msg)
		}
	})
}
