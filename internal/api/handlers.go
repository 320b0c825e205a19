package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"navira/internal/assistant"
	"navira/internal/config"
	"navira/internal/data"
	"navira/internal/geo"
	"navira/internal/km"
	"navira/internal/storage/sqlite"
	"navira/internal/table"
)

// Server serves the computed analytics tables to the dashboard frontend.
// CacheDB and Assist are optional; without them requests are computed fresh
// and the assistant endpoint reports itself disabled.
type Server struct {
	Cfg     config.Config
	Store   *data.Store
	CacheDB *sql.DB
	Assist  *assistant.Client
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// --- Competitors ---

type competitorsResponse struct {
	Finess      string   `json:"finess"`
	Competitors []string `json:"competitors"`
}

func (s *Server) competitors(w http.ResponseWriter, r *http.Request) {
	finess := mux.Vars(r)["finess"]
	n := s.Cfg.TopCompetitors
	if q := r.URL.Query().Get("n"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid n=%q", q)
			return
		}
		n = parsed
	}

	snap := s.Store.Snapshot()
	ranked, err := geo.RankCompetitors(snap.Competitors, finess, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ranking competitors: %v", err)
		return
	}
	if ranked == nil {
		ranked = []string{}
	}
	writeJSON(w, http.StatusOK, competitorsResponse{Finess: geo.ZeroPad(finess, 9), Competitors: ranked})
}

// --- Recruitment zones ---

type allocationRow struct {
	Insee5 string  `json:"insee5"`
	Value  float64 `json:"value"`
}

type zoneLayer struct {
	CompetitorID string          `json:"competitor_id"`
	Rows         []allocationRow `json:"rows"`
	Diagnostics  geo.Diagnostics `json:"diagnostics"`
}

type zonesResponse struct {
	Finess     string      `json:"finess"`
	Allocation string      `json:"allocation"`
	Collapsed  bool        `json:"collapsed"`
	Layers     []zoneLayer `json:"layers"`
}

func (s *Server) recruitmentZones(w http.ResponseWriter, r *http.Request) {
	finess := mux.Vars(r)["finess"]

	modeParam := r.URL.Query().Get("allocation")
	if modeParam == "" {
		modeParam = s.Cfg.AllocationMode
	}
	mode, err := geo.ParseAllocationMode(modeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	snap := s.Store.Snapshot()
	// Collapse arrondissements only when the geometry is known to lack
	// sub-city boundaries; collapsing against a geometry that has them
	// would double-count. The query parameter overrides the detection for
	// callers joining against their own geometry.
	collapse := snap.GeometryLoaded && !snap.GeometryHasArrondissements
	if q := r.URL.Query().Get("collapse"); q != "" {
		parsed, err := strconv.ParseBool(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid collapse=%q", q)
			return
		}
		collapse = parsed
	}

	// The cache file outlives the process, so every input that shapes the
	// response must land in the key, the layer count included.
	key := sqlite.CacheKey(s.Cfg.CacheVersion, "zones",
		snap.RecruitmentHash+snap.CompetitorsHash,
		geo.ZeroPad(finess, 9), string(mode), strconv.FormatBool(collapse),
		strconv.Itoa(s.Cfg.TopCompetitors))
	if s.serveCached(w, key) {
		return
	}

	ranked, err := geo.RankCompetitors(snap.Competitors, finess, s.Cfg.TopCompetitors)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ranking competitors: %v", err)
		return
	}

	resp := zonesResponse{
		Finess:     geo.ZeroPad(finess, 9),
		Allocation: string(mode),
		Collapsed:  collapse,
		Layers:     []zoneLayer{},
	}
	for _, competitor := range ranked {
		alloc, diag, err := geo.AllocateToCommunes(snap.Recruitment, competitor, snap.Crosswalk, mode)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "allocating %s: %v", competitor, err)
			return
		}
		if collapse {
			alloc, err = geo.CollapseArrondissements(alloc, false)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "collapsing %s: %v", competitor, err)
				return
			}
		}
		resp.Layers = append(resp.Layers, zoneLayer{
			CompetitorID: competitor,
			Rows:         allocationRows(alloc),
			Diagnostics:  diag,
		})
	}

	s.writeAndCache(w, key, resp)
}

func allocationRows(t *table.Table) []allocationRow {
	rows := make([]allocationRow, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		rows = append(rows, allocationRow{
			Insee5: t.String(i, "insee5"),
			Value:  t.Float(i, "value"),
		})
	}
	return rows
}

// --- Complication curves ---

type curvePoint struct {
	Group    string  `json:"group"`
	Time     string  `json:"time"`
	AtRisk   float64 `json:"at_risk"`
	Events   float64 `json:"events"`
	Hazard   float64 `json:"hazard"`
	Survival float64 `json:"survival"`
}

type curveResponse struct {
	Points []curvePoint `json:"points"`
}

func (s *Server) hospitalComplications(w http.ResponseWriter, r *http.Request) {
	finess := geo.ZeroPad(mux.Vars(r)["finess"], 9)
	snap := s.Store.Snapshot()

	key := sqlite.CacheKey(s.Cfg.CacheVersion, "km", snap.ComplicationsHash,
		finess, strings.Join(s.Cfg.TimeOrder, ","))
	if s.serveCached(w, key) {
		return
	}

	filtered := filterByColumn(snap.Complications, "finess", finess)
	curve, err := km.ComputeCurve(filtered, "quarter", "complications_count", "procedures_count",
		[]string{"finess"}, s.Cfg.TimeOrder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "computing curve: %v", err)
		return
	}
	s.writeAndCache(w, key, curveResponse{Points: curvePoints(curve)})
}

func (s *Server) nationalComplications(w http.ResponseWriter, _ *http.Request) {
	snap := s.Store.Snapshot()

	key := sqlite.CacheKey(s.Cfg.CacheVersion, "km", snap.ComplicationsHash,
		"national", strings.Join(s.Cfg.TimeOrder, ","))
	if s.serveCached(w, key) {
		return
	}

	curve, err := km.ComputeCurve(snap.Complications, "quarter", "complications_count", "procedures_count",
		nil, s.Cfg.TimeOrder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "computing curve: %v", err)
		return
	}
	s.writeAndCache(w, key, curveResponse{Points: curvePoints(curve)})
}

func curvePoints(curve *table.Table) []curvePoint {
	points := make([]curvePoint, 0, curve.NumRows())
	for i := 0; i < curve.NumRows(); i++ {
		points = append(points, curvePoint{
			Group:    curve.String(i, "group"),
			Time:     curve.String(i, "time"),
			AtRisk:   curve.Float(i, "at_risk"),
			Events:   curve.Float(i, "events"),
			Hazard:   curve.Float(i, "hazard"),
			Survival: curve.Float(i, "survival"),
		})
	}
	return points
}

// filterByColumn returns a new table with only the rows whose column equals
// the value. Engines take tables, not row predicates, so filtering stays here
// at the serving boundary.
func filterByColumn(t *table.Table, col, value string) *table.Table {
	out := table.New(t.Columns()...)
	if !t.HasColumn(col) {
		return t.Clone()
	}
	cols := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		if t.String(i, col) != value {
			continue
		}
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = t.Value(i, c)
		}
		out.AppendRow(row...)
	}
	return out
}

// --- Assistant ---

type assistantRequest struct {
	Finess   string `json:"finess"`
	Question string `json:"question"`
}

type assistantResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) assistant(w http.ResponseWriter, r *http.Request) {
	if s.Assist == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is disabled")
		return
	}
	var req assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	summary, err := s.indicatorSummary(req.Finess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "building indicator summary: %v", err)
		return
	}
	answer, _, err := s.Assist.Ask(r.Context(), req.Question, summary)
	if err != nil {
		writeError(w, http.StatusBadGateway, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, assistantResponse{Answer: answer})
}

// indicatorSummary condenses the focal hospital's current indicators into a
// plain-text block for the assistant's system prompt.
func (s *Server) indicatorSummary(finess string) (string, error) {
	snap := s.Store.Snapshot()
	focal := geo.ZeroPad(finess, 9)

	var b strings.Builder
	fmt.Fprintf(&b, "Hospital FINESS: %s\n", focal)

	ranked, err := geo.RankCompetitors(snap.Competitors, focal, s.Cfg.TopCompetitors)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "Top competitors: %s\n", strings.Join(ranked, ", "))

	mode, _ := geo.ParseAllocationMode(s.Cfg.AllocationMode)
	for _, competitor := range ranked {
		_, diag, err := geo.AllocateToCommunes(snap.Recruitment, competitor, snap.Crosswalk, mode)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Recruitment zone %s: %s\n", competitor, diag.Summary())
	}

	filtered := filterByColumn(snap.Complications, "finess", focal)
	curve, err := km.ComputeCurve(filtered, "quarter", "complications_count", "procedures_count",
		[]string{"finess"}, s.Cfg.TimeOrder)
	if err != nil {
		return "", err
	}
	if curve.NumRows() == 0 {
		b.WriteString("Complication curve: no data available\n")
	} else {
		last := curve.NumRows() - 1
		fmt.Fprintf(&b, "Complication-free rate at %s: %.1f%% (at risk %.0f, events %.0f)\n",
			curve.String(last, "time"), curve.Float(last, "survival")*100,
			curve.Float(last, "at_risk"), curve.Float(last, "events"))
	}
	return b.String(), nil
}

// --- Cache helpers ---

func (s *Server) serveCached(w http.ResponseWriter, key string) bool {
	if s.CacheDB == nil {
		return false
	}
	payload, ok, err := sqlite.GetCached(s.CacheDB, key)
	if err != nil {
		log.Printf("cache read error: %v", err)
		return false
	}
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
	return true
}

func (s *Server) writeAndCache(w http.ResponseWriter, key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding response: %v", err)
		return
	}
	if s.CacheDB != nil {
		if err := sqlite.PutCached(s.CacheDB, key, string(body)); err != nil {
			log.Printf("cache write error: %v", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
