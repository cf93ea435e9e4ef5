package steps

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

// Older analysis payloads used these names before the canonical ones existed.
// An alias is only read when the canonical key is absent.
var globalMetricAliases = map[twin.Dimension][]string{
	twin.OilinessLevel:     {"oil_balance"},
	twin.BarrierRisk:       {"barrier_risk_score"},
	twin.InflammationLevel: {"redness_index"},
}

// Keys in a flat region entry that are not sub-scores.
var regionReservedKeys = map[string]bool{
	"metrics":      true,
	"bounding_box": true,
	"bbox":         true,
	"heatmap_url":  true,
	"concerns":     true,
	"region":       true,
	"region_name":  true,
	"name":         true,
}

type IngestOptions struct {
	DefaultModelVersion string
}

type IngestResult struct {
	Vector       twin.SkinStateVector
	Regions      []twin.RegionMetrics
	ModelVersion string
	Confidence   float64
	// Dimensions actually read from the payload (not defaulted).
	UsableDimensions int
	Warnings         []string
}

// Ingest normalizes a raw analysis payload. Recoverable problems are repaired
// in place and reported as "<kind>:<key>" warnings; a payload with no usable
// global metric at all fails with twin.ErrMalformedAnalysis.
func Ingest(raw []byte, opts IngestOptions) (IngestResult, error) {
	var out IngestResult
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return out, fmt.Errorf("%w: payload is not valid JSON", twin.ErrMalformedAnalysis)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return out, fmt.Errorf("%w: payload is not an object", twin.ErrMalformedAnalysis)
	}
	gm := root.Get("global_metrics")
	if !gm.Exists() || !gm.IsObject() {
		return out, fmt.Errorf("%w: missing global_metrics section", twin.ErrMalformedAnalysis)
	}

	for _, d := range twin.Dimensions {
		val, ok, warns := readDimension(gm, d)
		out.Warnings = append(out.Warnings, warns...)
		if !ok {
			out.Vector.Set(d, twin.NeutralScore)
			continue
		}
		out.UsableDimensions++
		clamped := twin.ClampScore(val)
		if clamped != val {
			out.Warnings = append(out.Warnings, "clamped:"+string(d))
		}
		out.Vector.Set(d, clamped)
	}
	if out.UsableDimensions == 0 {
		return IngestResult{}, fmt.Errorf("%w: global_metrics has no usable dimension", twin.ErrMalformedAnalysis)
	}

	out.Regions, out.Warnings = ingestRegions(root, out.Warnings)

	out.ModelVersion = strings.TrimSpace(root.Get("model_version").String())
	if out.ModelVersion == "" {
		out.ModelVersion = strings.TrimSpace(opts.DefaultModelVersion)
	}
	out.Confidence = 1.0
	if c := root.Get("confidence"); c.Exists() {
		if f, ok := numeric(c); ok {
			if f < 0 || f > 1 {
				out.Warnings = append(out.Warnings, "clamped:confidence")
				f = math.Max(0, math.Min(1, f))
			}
			out.Confidence = f
		} else {
			out.Warnings = append(out.Warnings, "invalid_value:confidence")
		}
	}
	return out, nil
}

// readDimension returns the value, whether it came from the payload, and any
// warnings. A value that is present but not numeric is reported as both
// invalid and defaulted.
func readDimension(gm gjson.Result, d twin.Dimension) (float64, bool, []string) {
	v := gm.Get(string(d))
	if !v.Exists() || v.Type == gjson.Null {
		for _, alias := range globalMetricAliases[d] {
			if a := gm.Get(alias); a.Exists() && a.Type != gjson.Null {
				v = a
				break
			}
		}
	}
	if !v.Exists() || v.Type == gjson.Null {
		return 0, false, []string{"defaulted:" + string(d)}
	}
	f, ok := numeric(v)
	if !ok {
		return 0, false, []string{"invalid_value:" + string(d), "defaulted:" + string(d)}
	}
	return f, true, nil
}

func numeric(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, !math.IsNaN(v.Num) && !math.IsInf(v.Num, 0)
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func ingestRegions(root gjson.Result, warnings []string) ([]twin.RegionMetrics, []string) {
	regions := []twin.RegionMetrics{}
	bySource := map[string]int{}

	add := func(key string, entry gjson.Result) {
		rm, w := regionEntry(key, entry)
		warnings = append(warnings, w...)
		bySource[twin.NormalizeRegionKey(key)] = len(regions)
		regions = append(regions, rm)
	}

	rs := root.Get("regions")
	switch {
	case rs.IsObject():
		rs.ForEach(func(k, v gjson.Result) bool {
			add(k.String(), v)
			return true
		})
	case rs.IsArray():
		for i, item := range rs.Array() {
			key := firstString(item, "region", "region_name", "name")
			if key == "" {
				key = fmt.Sprintf("#%d", i)
			}
			add(key, item)
		}
	case rs.Exists() && rs.Type != gjson.Null:
		warnings = append(warnings, "invalid_section:regions")
	}

	// heatmaps: {region_key: {url, bounding_box}} enriches entries by key.
	if hm := root.Get("heatmaps"); hm.IsObject() {
		hm.ForEach(func(k, v gjson.Result) bool {
			key := k.String()
			idx, ok := bySource[twin.NormalizeRegionKey(key)]
			if !ok {
				add(key, gjson.Result{})
				idx = len(regions) - 1
			}
			if url := firstString(v, "url", "heatmap_url"); url != "" && regions[idx].HeatmapURL == "" {
				regions[idx].HeatmapURL = url
			}
			if v.Type == gjson.String && regions[idx].HeatmapURL == "" {
				regions[idx].HeatmapURL = strings.TrimSpace(v.Str)
			}
			if regions[idx].BoundingBox == nil {
				if bbRaw := v.Get("bounding_box"); bbRaw.Exists() {
					bb, ok := parseBoundingBox(bbRaw)
					if ok {
						regions[idx].BoundingBox = &bb
					} else {
						warnings = append(warnings, "invalid_bounding_box:"+key)
					}
				}
			}
			return true
		})
	}
	return regions, warnings
}

func regionEntry(key string, entry gjson.Result) (twin.RegionMetrics, []string) {
	var warnings []string
	region, known := twin.LookupRegion(key)
	if !known {
		warnings = append(warnings, "unknown_region:"+key)
	}
	rm := twin.RegionMetrics{
		Region:    region,
		SourceKey: key,
		Scores:    map[string]float64{},
		Concerns:  []string{},
	}
	if !entry.Exists() {
		return rm, warnings
	}
	if !entry.IsObject() {
		warnings = append(warnings, "invalid_region_entry:"+key)
		return rm, warnings
	}

	scoreSource := entry.Get("metrics")
	flat := !scoreSource.IsObject()
	if flat {
		scoreSource = entry
	}
	scoreSource.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if flat && regionReservedKeys[name] {
			return true
		}
		if f, ok := numeric(v); ok {
			rm.Scores[name] = f
		}
		return true
	})

	for _, c := range entry.Get("concerns").Array() {
		if s := strings.TrimSpace(c.String()); s != "" {
			rm.Concerns = append(rm.Concerns, s)
		}
	}
	rm.HeatmapURL = strings.TrimSpace(entry.Get("heatmap_url").String())

	bbRaw := entry.Get("bounding_box")
	if !bbRaw.Exists() {
		bbRaw = entry.Get("bbox")
	}
	if bbRaw.Exists() && bbRaw.Type != gjson.Null {
		bb, ok := parseBoundingBox(bbRaw)
		if ok {
			rm.BoundingBox = &bb
		} else {
			warnings = append(warnings, "invalid_bounding_box:"+key)
		}
	}
	return rm, warnings
}

// parseBoundingBox accepts {x,y,width,height}, {x,y,w,h} or [x,y,w,h].
func parseBoundingBox(v gjson.Result) (twin.BoundingBox, bool) {
	var vals [4]float64
	switch {
	case v.IsArray():
		arr := v.Array()
		if len(arr) != 4 {
			return twin.BoundingBox{}, false
		}
		for i, item := range arr {
			f, ok := numeric(item)
			if !ok {
				return twin.BoundingBox{}, false
			}
			vals[i] = f
		}
	case v.IsObject():
		keys := [4][]string{{"x"}, {"y"}, {"width", "w"}, {"height", "h"}}
		for i, names := range keys {
			found := false
			for _, name := range names {
				if f, ok := numeric(v.Get(name)); ok {
					vals[i] = f
					found = true
					break
				}
			}
			if !found {
				return twin.BoundingBox{}, false
			}
		}
	default:
		return twin.BoundingBox{}, false
	}
	bb := twin.BoundingBox{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	return bb, bb.Valid()
}

func firstString(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k).String()); s != "" && v.Get(k).Type == gjson.String {
			return s
		}
	}
	return ""
}
