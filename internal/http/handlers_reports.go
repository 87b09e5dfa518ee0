package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"budgetdash/internal/log"
	"budgetdash/internal/rbac"
	"budgetdash/internal/report"
)

type reportListResponse struct {
	Reports []reportLink `json:"reports"`
}

type reportLink struct {
	Kind report.Kind `json:"kind"`
	JSON string      `json:"json"`
	CSV  string      `json:"csv"`
}

// handleListReports lists the reports the caller's role may export.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	out := reportListResponse{Reports: []reportLink{}}
	for _, k := range roleFrom(r.Context()).Exports() {
		out.Reports = append(out.Reports, reportLink{
			Kind: k,
			JSON: "/api/reports/" + string(k),
			CSV:  "/api/reports/" + string(k) + ".csv",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type reportResponse struct {
	Kind        report.Kind   `json:"kind"`
	GeneratedAt string        `json:"generated_at"`
	Data        report.Report `json:"data"`
}

// handleReport serves /api/reports/{kind} as JSON and /api/reports/{kind}.csv
// as a CSV download. Query parameters department, category, from and to
// filter expense-based reports.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("kind")
	asCSV := strings.HasSuffix(strings.ToLower(raw), ".csv")

	kind, err := report.ParseKind(raw)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	if !roleFrom(r.Context()).CanExport(kind) {
		forbidden(w, r, "export "+string(kind))
		return
	}

	q := r.URL.Query()
	filter, err := report.ParseFilter(q.Get("department"), q.Get("category"), q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, log.OpExport, badRequest("%v", err))
		return
	}

	rep, err := s.allocation.Report(r.Context(), kind, filter)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}

	now := time.Now().UTC()
	if !asCSV {
		writeJSON(w, http.StatusOK, reportResponse{Kind: kind, GeneratedAt: now.Format(time.RFC3339), Data: rep})
		return
	}

	// Buffer so an encoding error can still become a proper error response.
	table := rep.Table()
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, table, q.Get("bom") != "false"); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvFilename(kind, now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	log.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		log.FieldReportKind, string(kind),
		log.FieldRole, string(roleFrom(r.Context())),
		log.FieldCount, len(table.Rows))
}

func csvFilename(kind rbac.Export, at time.Time) string {
	return "budgetdash-" + string(kind) + "-" + at.Format(time.DateOnly) + ".csv"
}
