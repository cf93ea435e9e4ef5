package twin

import "strings"

// Region is a named facial/body zone.
type Region string

const (
	RegionFullFace   Region = "full_face"
	RegionForehead   Region = "forehead"
	RegionLeftCheek  Region = "left_cheek"
	RegionRightCheek Region = "right_cheek"
	RegionNose       Region = "nose"
	RegionChin       Region = "chin"
	RegionEyeArea    Region = "eye_area"
	RegionLipArea    Region = "lip_area"
	RegionNeck       Region = "neck"
	RegionUpperBack  Region = "upper_back"
	RegionOther      Region = "other"
)

var regionAliases = map[string]Region{
	"full_face":       RegionFullFace,
	"whole_face":      RegionFullFace,
	"face":            RegionFullFace,
	"forehead":        RegionForehead,
	"left_cheek":      RegionLeftCheek,
	"right_cheek":     RegionRightCheek,
	"nose":            RegionNose,
	"chin":            RegionChin,
	"eye_area":        RegionEyeArea,
	"under_eye_left":  RegionEyeArea,
	"under_eye_right": RegionEyeArea,
	"eyes":            RegionEyeArea,
	"lip_area":        RegionLipArea,
	"lips":            RegionLipArea,
	"neck":            RegionNeck,
	"upper_back":      RegionUpperBack,
	"other":           RegionOther,
}

// NormalizeRegionKey lowercases a raw key and folds spaces and hyphens to underscores.
func NormalizeRegionKey(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	return k
}

// LookupRegion maps a raw payload key to a canonical region. The second
// return is false for unmapped keys, which callers file under RegionOther.
func LookupRegion(raw string) (Region, bool) {
	r, ok := regionAliases[NormalizeRegionKey(raw)]
	if !ok {
		return RegionOther, false
	}
	return r, true
}

// BoundingBox is a normalized rectangle; all coordinates live in [0,1].
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

const bboxEpsilon = 1e-9

func (b BoundingBox) Valid() bool {
	in01 := func(v float64) bool { return v >= 0 && v <= 1 }
	if !in01(b.X) || !in01(b.Y) || !in01(b.Width) || !in01(b.Height) {
		return false
	}
	return b.X+b.Width <= 1+bboxEpsilon && b.Y+b.Height <= 1+bboxEpsilon
}

// RegionMetrics holds the per-region view of one scan.
type RegionMetrics struct {
	Region      Region             `json:"region"`
	SourceKey   string             `json:"source_key"`
	BoundingBox *BoundingBox       `json:"bounding_box,omitempty"`
	Scores      map[string]float64 `json:"scores"`
	Concerns    []string           `json:"concerns"`
	HeatmapURL  string             `json:"heatmap_url,omitempty"`
}
