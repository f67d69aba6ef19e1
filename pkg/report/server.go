package report

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"pv-curve/internal/log"
	"pv-curve/pkg/analysis"
	"pv-curve/pkg/pv"
)

// Server serves the chart page and curve data over HTTP.
type Server struct {
	set     CurveSet
	reports []analysis.Report
}

func NewServer(set CurveSet, reports []analysis.Report) *Server {
	return &Server{set: set, reports: reports}
}

// Router returns the HTTP routes of the viewer.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleCharts).Methods(http.MethodGet)
	router.HandleFunc("/api/curves", s.handleCurves).Methods(http.MethodGet)
	return router
}

func (s *Server) handleCharts(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.set.RenderPage(w); err != nil {
		log.Errorf("rendering chart page: %v", err)
	}
}

type curvePayload struct {
	Label  string           `json:"label"`
	Curve  pv.Curve         `json:"curve"`
	Report *analysis.Report `json:"report,omitempty"`
}

func (s *Server) handleCurves(w http.ResponseWriter, _ *http.Request) {
	payload := make([]curvePayload, 0, len(s.set.Curves))
	for i, curve := range s.set.Curves {
		entry := curvePayload{Curve: curve}
		if i < len(s.set.Labels) {
			entry.Label = s.set.Labels[i]
		}
		if i < len(s.reports) {
			entry.Report = &s.reports[i]
		}
		payload = append(payload, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("encoding curves: %v", err)
	}
}
