package output

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shouni/go-aiva-kit/pkg/domain"
)

// memoryStore はテスト用のインメモリ InputReader / OutputWriter なのだ。
type memoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
	mimes map[string]string
	fail  bool // true にすると Write が必ず失敗するのだ
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		files: make(map[string][]byte),
		mimes: make(map[string]string),
	}
}

func (m *memoryStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Write(_ context.Context, path string, r io.Reader, mimeType string) error {
	if m.fail {
		return errors.New("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	m.mimes[path] = mimeType
	return nil
}

func TestManager_SegmentFiles(t *testing.T) {
	t.Run("セグメントの原文とプロンプトが所定のパスへ保存されるのだ", func(t *testing.T) {
		store := newMemoryStore()
		mgr := NewManager(store, store, "output")

		seg := &domain.Segment{
			Index:          3,
			Text:           "the waves crash against the rocks",
			EnhancedPrompt: "Ultra-realistic cinematic shot, of waves crashing",
		}
		if err := mgr.WriteSegment(context.Background(), "output/test_proj", seg); err != nil {
			t.Fatalf("保存に失敗したのだ: %v", err)
		}

		if got := string(store.files["output/test_proj/segment_03/text.txt"]); got != seg.Text {
			t.Errorf("原文の保存内容が違うのだ: %q", got)
		}
		if got := string(store.files["output/test_proj/segment_03/prompt.txt"]); got != seg.EnhancedPrompt {
			t.Errorf("プロンプトの保存内容が違うのだ: %q", got)
		}
	})

	t.Run("画像はimage.pngとして保存され、パスが返るのだ", func(t *testing.T) {
		store := newMemoryStore()
		mgr := NewManager(store, store, "output")

		seg := &domain.Segment{Index: 1}
		imgData := []byte{0x89, 0x50, 0x4E, 0x47}
		path, err := mgr.WriteSegmentImage(context.Background(), "output/test_proj", seg, imgData, "image/png")
		if err != nil {
			t.Fatalf("画像の保存に失敗したのだ: %v", err)
		}
		if path != "output/test_proj/segment_01/image.png" {
			t.Errorf("保存パスが違うのだ: %s", path)
		}
		if !bytes.Equal(store.files[path], imgData) {
			t.Error("画像データが一致しないのだ")
		}
		if store.mimes[path] != "image/png" {
			t.Errorf("MIMEタイプが違うのだ: %s", store.mimes[path])
		}
	})

	t.Run("保存失敗はIOFailureとして報告されるのだ", func(t *testing.T) {
		store := newMemoryStore()
		store.fail = true
		mgr := NewManager(store, store, "output")

		err := mgr.WriteScript(context.Background(), "output/test_proj", "script body")
		var ioErr *domain.IOFailure
		if !errors.As(err, &ioErr) {
			t.Fatalf("IOFailure になるはずなのだ: %v", err)
		}
		if ioErr.Path == "" {
			t.Error("失敗したパスが記録されるはずなのだ")
		}
	})
}

func TestManager_State(t *testing.T) {
	t.Run("state.jsonの保存と読み込みが往復できるのだ", func(t *testing.T) {
		store := newMemoryStore()
		mgr := NewManager(store, store, "output")
		ctx := context.Background()

		want := domain.State{
			Slug:      "ocean_20260801_120000",
			Topic:     "ocean",
			VideoType: "long-form",
			Stage:     domain.StageSegmented,
			Script:    "the deep blue sea",
			Segments: domain.Segments{
				{Index: 1, Status: domain.StatusGenerated},
				{Index: 2, Status: domain.StatusPending},
			},
			LastCompleted: 1,
			CreatedAt:     time.Now().UTC().Format(time.RFC3339),
			UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
		}
		if err := mgr.SaveState(ctx, "output/ocean_20260801_120000", want); err != nil {
			t.Fatalf("保存に失敗したのだ: %v", err)
		}

		got, err := mgr.LoadState(ctx, "output/ocean_20260801_120000")
		if err != nil {
			t.Fatalf("読み込みに失敗したのだ: %v", err)
		}
		if got.Slug != want.Slug || got.Stage != want.Stage || got.LastCompleted != 1 {
			t.Errorf("往復でデータが崩れたのだ: %+v", got)
		}
		if len(got.Segments) != 2 || got.Segments[0].Status != domain.StatusGenerated {
			t.Error("セグメントの進捗が失われたのだ")
		}
	})

	t.Run("state.jsonが存在しなければIOFailureなのだ", func(t *testing.T) {
		store := newMemoryStore()
		mgr := NewManager(store, store, "output")

		_, err := mgr.LoadState(context.Background(), "output/missing_proj")
		var ioErr *domain.IOFailure
		if !errors.As(err, &ioErr) {
			t.Fatalf("IOFailure になるはずなのだ: %v", err)
		}
	})

	t.Run("壊れたstate.jsonもIOFailureとして扱うのだ", func(t *testing.T) {
		store := newMemoryStore()
		store.files["output/broken/state.json"] = []byte("{not json")
		mgr := NewManager(store, store, "output")

		_, err := mgr.LoadState(context.Background(), "output/broken")
		var ioErr *domain.IOFailure
		if !errors.As(err, &ioErr) {
			t.Fatalf("IOFailure になるはずなのだ: %v", err)
		}
	})

	t.Run("必須フィールドのないstate.jsonは拒否するのだ", func(t *testing.T) {
		store := newMemoryStore()
		store.files["output/empty/state.json"] = []byte("{}")
		mgr := NewManager(store, store, "output")

		_, err := mgr.LoadState(context.Background(), "output/empty")
		if err == nil {
			t.Fatal("slugとstageのないstateは拒否されるはずなのだ")
		}
	})
}

func TestResolveOutputPath(t *testing.T) {
	t.Run("ローカルパスはfilepathで結合されるのだ", func(t *testing.T) {
		got, err := ResolveOutputPath("output/proj", "manifest.json")
		if err != nil {
			t.Fatalf("失敗しないはずなのだ: %v", err)
		}
		if got != "output/proj/manifest.json" {
			t.Errorf("結合結果が違うのだ: %s", got)
		}
	})

	t.Run("GCSのURIはスキームを保ったまま結合されるのだ", func(t *testing.T) {
		got, err := ResolveOutputPath("gs://my-bucket/output", "segment_01")
		if err != nil {
			t.Fatalf("失敗しないはずなのだ: %v", err)
		}
		if got != "gs://my-bucket/output/segment_01" {
			t.Errorf("GCSパスの結合結果が違うのだ: %s", got)
		}
	})
}

func TestSlugify(t *testing.T) {
	now := time.Date(2026, 8, 23, 14, 30, 5, 0, time.UTC)

	t.Run("トピックが小文字英数字とタイムスタンプへ変換されるのだ", func(t *testing.T) {
		got := Slugify("Deep Sea Creatures!", now)
		if got != "deep_sea_creatures_20260823_143005" {
			t.Errorf("スラグが違うのだ: %s", got)
		}
	})

	t.Run("記号だけのトピックにもフォールバック名が付くのだ", func(t *testing.T) {
		got := Slugify("!!!", now)
		if got != "project_20260823_143005" {
			t.Errorf("フォールバックが効いていないのだ: %s", got)
		}
	})

	t.Run("長すぎるトピックは切り詰められるのだ", func(t *testing.T) {
		long := "this is an extremely long topic title that would make an unwieldy directory name on disk"
		got := Slugify(long, now)
		if len(got) > 48+1+15+1 {
			t.Errorf("スラグが長すぎるのだ: %d文字 %s", len(got), got)
		}
	})
}
