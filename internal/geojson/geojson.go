// Package geojson loads the communes FeatureCollection used by the map layer
// and figures out which feature property carries the INSEE commune code.
// Reference files come from several providers and disagree on the property
// name, so the key is auto-detected and validated instead of configured.
package geojson

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"

	"navira/internal/geo"
)

type Feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Diagnostics describes a load attempt for UI display.
type Diagnostics struct {
	ResolvedPath     string   `json:"resolved_path"`
	FileSize         int64    `json:"file_size"`
	FeatureCount     int      `json:"feature_count"`
	SampleProperties []string `json:"sample_properties"`
	INSEEKey         string   `json:"insee_key"`
	Errors           []string `json:"errors"`
}

// Load reads and validates a communes FeatureCollection. Returns nil plus
// diagnostics describing what went wrong on failure; load failures degrade
// the map layer, they never crash the service.
func Load(path string) (*FeatureCollection, Diagnostics) {
	var diag Diagnostics
	data, err := os.ReadFile(path)
	if err != nil {
		diag.Errors = append(diag.Errors, fmt.Sprintf("read %s: %v", path, err))
		return nil, diag
	}
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		diag.Errors = append(diag.Errors, fmt.Sprintf("invalid JSON: %v", err))
		return nil, diag
	}
	if fc.Type != "FeatureCollection" {
		diag.Errors = append(diag.Errors, "invalid GeoJSON format")
		return nil, diag
	}
	if len(fc.Features) == 0 {
		diag.Errors = append(diag.Errors, "no features found in GeoJSON")
		return nil, diag
	}

	diag.ResolvedPath = path
	diag.FileSize = int64(len(data))
	diag.FeatureCount = len(fc.Features)
	for k := range fc.Features[0].Properties {
		diag.SampleProperties = append(diag.SampleProperties, k)
	}
	diag.INSEEKey = DetectINSEEKey(&fc)
	return &fc, diag
}

// Known INSEE property keys, in priority order.
var knownINSEEKeys = []string{"code", "INSEE_COM", "insee", "code_insee", "INSEE_CODE", "com_insee", "codgeo"}

var inseeKeyPattern = regexp.MustCompile(`(?i)^(INSEE.*|code(_)?insee|codgeo)$`)

const minINSEECoverage = 0.9

// DetectINSEEKey finds the feature property holding INSEE commune codes.
// Exact known keys are tried first, then regex candidates, then any property;
// every candidate must carry INSEE-like values on at least 90% of features.
// Returns "" when nothing qualifies.
func DetectINSEEKey(fc *FeatureCollection) string {
	if fc == nil || len(fc.Features) == 0 {
		return ""
	}
	sample := fc.Features[0].Properties
	for _, key := range knownINSEEKeys {
		if _, ok := sample[key]; ok && validateCoverage(fc.Features, key) {
			return key
		}
	}

	limit := len(fc.Features)
	if limit > 20 {
		limit = 20
	}
	counts := make(map[string]int)
	var candidates []string
	for _, f := range fc.Features[:limit] {
		for k := range f.Properties {
			if inseeKeyPattern.MatchString(k) {
				if counts[k] == 0 {
					candidates = append(candidates, k)
				}
				counts[k]++
			}
		}
	}
	best := ""
	for _, k := range candidates {
		if best == "" || counts[k] > counts[best] {
			if validateCoverage(fc.Features, k) {
				best = k
			}
		}
	}
	if best != "" {
		return best
	}

	// Map iteration order is random; probe in sorted order so runs agree
	// when several properties qualify.
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if validateCoverage(fc.Features, k) {
			return k
		}
	}
	return ""
}

func validateCoverage(features []Feature, key string) bool {
	if len(features) == 0 {
		return false
	}
	valid := 0
	for _, f := range features {
		if v, ok := f.Properties[key]; ok && geo.ValidINSEE(propertyString(v)) {
			valid++
		}
	}
	return float64(valid)/float64(len(features)) >= minINSEECoverage
}

// Filter returns a collection restricted to the given INSEE codes. A nil
// collection or empty key passes through unchanged.
func Filter(fc *FeatureCollection, inseeKey string, needed []string) *FeatureCollection {
	if fc == nil || inseeKey == "" || len(needed) == 0 {
		return fc
	}
	set := make(map[string]bool, len(needed))
	for _, c := range needed {
		set[geo.NormalizeINSEE(c)] = true
	}
	out := &FeatureCollection{Type: fc.Type}
	for _, f := range fc.Features {
		if v, ok := f.Properties[inseeKey]; ok && set[geo.NormalizeINSEE(propertyString(v))] {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

// HasArrondissements reports whether the geometry carries sub-city communes
// for Paris, Lyon or Marseille. It drives whether allocation output must be
// collapsed to city-level codes before joining with the geometry.
func HasArrondissements(fc *FeatureCollection, inseeKey string) bool {
	if fc == nil || inseeKey == "" {
		return false
	}
	for _, f := range fc.Features {
		if v, ok := f.Properties[inseeKey]; ok && geo.IsArrondissement(geo.NormalizeINSEE(propertyString(v))) {
			return true
		}
	}
	return false
}

func propertyString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; INSEE codes are integral.
		return fmt.Sprintf("%.0f", s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
