// Package km computes product-limit (Kaplan-Meier) curves from pre-aggregated
// per-interval event/at-risk counts. In this domain the curve is read as a
// complication-free rate rather than literal survival.
package km

import (
	"sort"
	"strconv"
	"strings"

	"navira/internal/table"
)

// Curve output columns, in order.
var CurveColumns = []string{"group", "time", "at_risk", "events", "hazard", "survival"}

// AllGroup is the implicit group name when no grouping columns are given.
const AllGroup = "ALL"

type intervalAgg struct {
	events float64
	atRisk float64
}

// ComputeCurve turns a table of per-interval event/at-risk counts into a tidy
// per-group survival curve with columns {group,time,at_risk,events,hazard,
// survival}. The input table is only read, never mutated, so it is safe to
// share across repeated calls.
//
// Rows are coerced leniently: non-numeric event/at-risk cells count as 0, and
// rows with at_risk <= 0 are excluded before aggregation (no hazard can be
// computed for them). Duplicate (time, group) rows are summed. When timeOrder
// is nil the distinct time labels are sorted numerically if they all parse as
// numbers, lexicographically otherwise; callers with mixed label formats
// (quarters vs. semesters) should always pass an explicit order. Labels absent
// from an explicit timeOrder are dropped.
//
// Hazard is events/at_risk with no clamping: inputs where events exceed
// at_risk propagate a hazard above 1 and a negative survival factor, kept
// visible so callers can detect malformed source data with a range check.
//
// The function is pure and memoizable from a content hash of the table plus
// the scalar parameters. It returns a typed empty table, never nil, when all
// candidate rows are filtered out.
func ComputeCurve(t *table.Table, timeCol, eventCol, atRiskCol string, groupCols []string, timeOrder []string) (*table.Table, error) {
	required := append([]string{timeCol, eventCol, atRiskCol}, groupCols...)
	if err := t.RequireColumns(required...); err != nil {
		return nil, err
	}

	// Aggregate by (group, time), skipping zero-at-risk rows up front so a
	// negative count never offsets a duplicate row's sum.
	agg := make(map[string]map[string]intervalAgg)
	seenTimes := make(map[string]bool)
	var timesInOrder []string
	for i := 0; i < t.NumRows(); i++ {
		atRisk := t.Float(i, atRiskCol)
		if atRisk <= 0 {
			continue
		}
		group := groupKey(t, i, groupCols)
		tm := t.String(i, timeCol)
		byTime, ok := agg[group]
		if !ok {
			byTime = make(map[string]intervalAgg)
			agg[group] = byTime
		}
		cur := byTime[tm]
		cur.events += t.Float(i, eventCol)
		cur.atRisk += atRisk
		byTime[tm] = cur
		if !seenTimes[tm] {
			seenTimes[tm] = true
			timesInOrder = append(timesInOrder, tm)
		}
	}

	out := table.New(CurveColumns...)
	if len(agg) == 0 {
		return out, nil
	}

	if timeOrder == nil {
		timeOrder = DeriveTimeOrder(timesInOrder)
	}

	groups := make([]string, 0, len(agg))
	for g := range agg {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, g := range groups {
		byTime := agg[g]
		survival := 1.0
		for _, tm := range timeOrder {
			iv, ok := byTime[tm]
			// Intervals with no activity for this group reindex to 0/0
			// and fall under the same zero-at-risk exclusion.
			if !ok || iv.atRisk <= 0 {
				continue
			}
			hazard := iv.events / iv.atRisk
			survival *= 1 - hazard
			out.AppendRow(g, tm, iv.atRisk, iv.events, hazard, survival)
		}
	}
	return out, nil
}

// DeriveTimeOrder sorts distinct time labels numerically when every label
// parses as a number, lexicographically otherwise. This is a best-effort
// fallback; it cannot order mixed label formats sensibly.
func DeriveTimeOrder(labels []string) []string {
	out := append([]string(nil), labels...)
	numeric := make(map[string]float64, len(out))
	allNumeric := len(out) > 0
	for _, l := range out {
		f, err := strconv.ParseFloat(strings.TrimSpace(l), 64)
		if err != nil {
			allNumeric = false
			break
		}
		numeric[l] = f
	}
	if allNumeric {
		// Lexicographic tie-break keeps labels like "1" and "01" in a
		// fixed order regardless of input row order.
		sort.SliceStable(out, func(i, j int) bool {
			if numeric[out[i]] != numeric[out[j]] {
				return numeric[out[i]] < numeric[out[j]]
			}
			return out[i] < out[j]
		})
	} else {
		sort.Strings(out)
	}
	return out
}

func groupKey(t *table.Table, row int, groupCols []string) string {
	if len(groupCols) == 0 {
		return AllGroup
	}
	if len(groupCols) == 1 {
		return t.String(row, groupCols[0])
	}
	parts := make([]string, len(groupCols))
	for i, c := range groupCols {
		parts[i] = t.String(row, c)
	}
	return strings.Join(parts, "_")
}
