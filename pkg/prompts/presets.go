package prompts

import (
	"maps"
	"slices"

	"github.com/shouni/go-aiva-kit/pkg/domain"
)

// Preset は画像生成プロンプトへ固定順で合成するスタイル断片の組です。
type Preset struct {
	Name     string
	Prefix   string
	Quality  string
	Lighting string
	Camera   string
	Style    string
	Mood     string
}

// presetTable は名前付きプリセットの定義なのだ。断片の文言を変えると
// 生成済みマニフェストの再現性が崩れるため、変更は慎重に。
var presetTable = map[string]Preset{
	"cinematic_4k": {
		Name:     "cinematic_4k",
		Prefix:   "Ultra-realistic cinematic shot",
		Quality:  "4K resolution, professional cinematography",
		Lighting: "dramatic lighting, depth of field",
		Camera:   "shot with RED camera, shallow depth of field",
		Style:    "film grain, color graded, cinematic composition",
		Mood:     "cinematic atmosphere",
	},
	"golden_hour": {
		Name:     "golden_hour",
		Prefix:   "Beautiful golden hour scene",
		Quality:  "high resolution, professional photography",
		Lighting: "warm golden hour lighting, soft shadows",
		Camera:   "perfect exposure, bokeh background",
		Style:    "warm color palette, glowing light",
		Mood:     "serene and warm atmosphere",
	},
	"dramatic_lighting": {
		Name:     "dramatic_lighting",
		Prefix:   "Dramatically lit scene",
		Quality:  "high contrast, professional lighting",
		Lighting: "dramatic chiaroscuro lighting, strong shadows",
		Camera:   "professional photography, sharp focus",
		Style:    "high contrast, moody atmosphere",
		Mood:     "intense and dramatic mood",
	},
	"pov_perspective": {
		Name:     "pov_perspective",
		Prefix:   "First-person perspective view",
		Quality:  "immersive POV shot, realistic perspective",
		Lighting: "natural lighting, realistic shadows",
		Camera:   "first-person viewpoint, wide angle lens",
		Style:    "POV camera angle, immersive experience",
		Mood:     "immersive and engaging",
	},
	"documentary": {
		Name:     "documentary",
		Prefix:   "Documentary-style photograph",
		Quality:  "photojournalistic quality, authentic",
		Lighting: "natural lighting, realistic exposure",
		Camera:   "handheld camera feel, natural framing",
		Style:    "documentary photography, candid moment",
		Mood:     "authentic and real",
	},
	"artistic": {
		Name:     "artistic",
		Prefix:   "Artistic interpretation",
		Quality:  "fine art quality, creative composition",
		Lighting: "artistic lighting, creative shadows",
		Camera:   "artistic framing, unique perspective",
		Style:    "artistic style, creative interpretation",
		Mood:     "creative and inspiring",
	},
	"realistic": {
		Name:     "realistic",
		Prefix:   "Photorealistic scene",
		Quality:  "ultra-realistic, lifelike detail",
		Lighting: "natural realistic lighting",
		Camera:   "realistic camera settings, natural perspective",
		Style:    "photorealistic rendering, true-to-life",
		Mood:     "authentic and believable",
	},
	"vintage": {
		Name:     "vintage",
		Prefix:   "Vintage-style photograph",
		Quality:  "vintage film quality, nostalgic feel",
		Lighting: "soft vintage lighting, film grain",
		Camera:   "vintage camera feel, classic composition",
		Style:    "retro color grading, vintage aesthetic",
		Mood:     "nostalgic and timeless",
	},
}

// Lookup は名前に対応するプリセットを返します。
// 未知の名前は ConfigurationError になります。
func Lookup(name string) (Preset, error) {
	p, ok := presetTable[name]
	if !ok {
		return Preset{}, domain.NewConfigurationError(
			"unknown style preset %q (available: %v)", name, Names())
	}
	return p, nil
}

// Names は利用可能なプリセット名をソート済みで返すのだ。
func Names() []string {
	names := slices.Collect(maps.Keys(presetTable))
	slices.Sort(names)
	return names
}
