// Package api serves the county query service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/invertedv/countydata/plot"
	"github.com/invertedv/countydata/query"
)

// Server is the REST API server.
type Server struct {
	svc    *query.Service
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new API server over svc.
func NewServer(addr string, svc *query.Service) *Server {
	s := &Server{
		svc:    svc,
		router: chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/labels", s.listLabels)
		r.Get("/ranking", s.ranking)
		r.Get("/mapping", s.mapping)
		r.Get("/mapping/plot", s.mappingPlot)

		r.Get("/states", s.listStates)
		r.Get("/states/{state}/counties", s.listCounties)
		r.Get("/states/{state}/counties/{county}/fips", s.getFIPS)
		r.Get("/states/{state}/counties/{county}/series", s.getSeries)
		r.Get("/states/{state}/counties/{county}/rank", s.getRank)
		r.Get("/states/{state}/counties/{county}/plot", s.seriesPlot)
	})

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	return s
}

// Handler is the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rows":   s.svc.Table().RowCount(),
	})
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	type labelResponse struct {
		Label       string `json:"label"`
		HoverFormat string `json:"hover_format"`
	}

	var out []labelResponse
	for _, lbl := range s.svc.Labels() {
		out = append(out, labelResponse{Label: lbl, HoverFormat: s.svc.HoverFormat(lbl)})
	}

	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) listStates(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.States())
}

func (s *Server) listCounties(w http.ResponseWriter, r *http.Request) {
	counties, err := s.svc.Counties(param(r, "state"))
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, counties)
}

func (s *Server) getFIPS(w http.ResponseWriter, r *http.Request) {
	state, county := param(r, "state"), param(r, "county")
	fips, err := s.svc.FIPS(state, county)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"state": state, "county": county, "fips": fips})
}

func (s *Server) getSeries(w http.ResponseWriter, r *http.Request) {
	pts, err := s.svc.Series(param(r, "state"), param(r, "county"), r.URL.Query().Get("label"))
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, pts)
}

func (s *Server) ranking(w http.ResponseWriter, r *http.Request) {
	ranks, err := s.svc.Ranking(r.URL.Query().Get("label"))
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	if ranks == nil {
		ranks = []query.Rank{}
	}

	s.respondJSON(w, http.StatusOK, ranks)
}

// getRank describes the county's place in the ranking.
func (s *Server) getRank(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	ranks, err := s.svc.Ranking(label)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	text, err := s.svc.RankingText(param(r, "state"), param(r, "county"), label, ranks)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) mapping(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Mapping(r.URL.Query().Get("label"))
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	if entries == nil {
		entries = []query.MapEntry{}
	}

	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) mappingPlot(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	entries, err := s.svc.Mapping(label)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	p, err := plot.MapFigure(entries, label)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	s.respondPlot(w, p)
}

// seriesPlot returns the plotly figure of the county's series. kind=change plots the year-over-year
// percent change instead.
func (s *Server) seriesPlot(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	pts, err := s.svc.Series(param(r, "state"), param(r, "county"), label)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	var p *plot.Plot
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "series":
		p, err = plot.SeriesFigure(pts, label)
	case "change":
		p, err = plot.ChangeFigure(pts, label)
	default:
		s.respondError(w, http.StatusBadRequest, "unknown plot kind "+kind)
		return
	}

	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondPlot(w, p)
}

func (s *Server) respondPlot(w http.ResponseWriter, p *plot.Plot) {
	js, err := p.JSON()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, json.RawMessage(js))
}

// respondQueryError maps query errors to status codes.
func (s *Server) respondQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, query.ErrAmbiguous):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, query.ErrUnknownLabel):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// param returns the decoded path parameter. chi matches on RawPath when the request has one, and then
// the parameter is still escaped.
func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}

	if u, err := url.PathUnescape(v); err == nil {
		return u
	}

	return v
}
