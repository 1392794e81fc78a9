package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/airport"
	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/docdef"
	"github.com/Simplici0/charterquote/internal/geo"
	"github.com/Simplici0/charterquote/internal/metrics"
	"github.com/Simplici0/charterquote/internal/pricing"
	"github.com/Simplici0/charterquote/internal/quote"
	"github.com/Simplici0/charterquote/internal/session"
	"github.com/Simplici0/charterquote/internal/store"
	"github.com/Simplici0/charterquote/internal/units"
)

type pdfRenderer interface {
	Render(ctx context.Context, def docdef.Definition) ([]byte, error)
}

type pdfUploader interface {
	UploadPDF(ctx context.Context, quoteID string, pdf []byte) (string, error)
}

type quoteLister interface {
	List(ctx context.Context, query string, limit int) ([]store.SavedQuote, error)
	Get(ctx context.Context, id string) (store.SavedQuote, error)
}

type server struct {
	db       *sql.DB
	catalog  *catalog.Catalog
	sessions *session.Manager
	resolver airport.Resolver
	quotes   quoteLister
	pdf      pdfRenderer
	uploader pdfUploader
	metrics  *metrics.Registry
	log      *zap.SugaredLogger
	upSince  time.Time

	allowedOrigins []string
}

type sessionView struct {
	ID       string          `json:"id"`
	State    quote.State     `json:"state"`
	Results  quote.Results   `json:"results"`
	Frozen   bool            `json:"frozen"`
	Snapshot *quote.Snapshot `json:"snapshot,omitempty"`
}

type documentRequest struct {
	Selection string         `json:"selection"`
	Options   docdef.Options `json:"options"`
}

type overrideRequest struct {
	CruiseSpeed *float64 `json:"cruiseSpeed"`
	HourlyRate  *float64 `json:"hourlyRate"`
}

type airportView struct {
	Code  string    `json:"code"`
	Point geo.Point `json:"point"`
}

type distanceView struct {
	Route []airport.ResolvedPoint `json:"route"`
	Km    float64                 `json:"km"`
	Nm    float64                 `json:"nm"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	s.mountMiddleware(r)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/calc", s.handleCalc)
		r.Get("/distance", s.handleRouteDistance)

		r.Get("/aircraft", s.handleAircraftList)
		r.Put("/aircraft/{aircraftID}/override", s.handleOverrideSet)
		r.Delete("/aircraft/{aircraftID}/override", s.handleOverrideClear)

		r.Get("/airports/{code}", s.handleAirport)

		r.Post("/sessions", s.handleSessionCreate)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Delete("/", s.handleSessionDelete)
			r.Put("/state", s.handleSessionUpdate)
			r.Post("/freeze", s.handleSessionFreeze)
			r.Delete("/freeze", s.handleSessionUnfreeze)
			r.Post("/document", s.handleSessionDocument)
			r.Post("/pdf", s.handleSessionPDF)
		})

		r.Get("/quotes", s.handleQuotesList)
		r.Get("/quotes/{quoteID}", s.handleQuoteGet)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
	}
	respondWithSuccess(w, code, map[string]any{
		"status":   status,
		"uptime_s": int(time.Since(s.upSince).Seconds()),
		"sessions": s.sessions.Len(),
	})
}

// handleCalc prices a state without creating a session.
func (s *server) handleCalc(w http.ResponseWriter, r *http.Request) {
	st, err := decodeState(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var ac quote.Aircraft
	if st.AircraftID != "" {
		eff, err := s.catalog.Effective(st.AircraftID)
		if err != nil {
			s.respondWithErr(w, r, err)
			return
		}
		ac = eff.Aircraft()
	}
	respondWithSuccess(w, http.StatusOK, quote.Compute(st, ac, pricing.StandardCommission))
}

// handleRouteDistance resolves ?codes=SBBR,SBMO,... and sums the great-circle legs.
func (s *server) handleRouteDistance(w http.ResponseWriter, r *http.Request) {
	codes := splitList(strings.Split(r.URL.Query().Get("codes"), ","))
	if len(codes) < 2 {
		respondWithError(w, http.StatusBadRequest, "at least two airport codes are required")
		return
	}
	route := airport.ResolveRoute(r.Context(), s.resolver, codes, requestLogger(r, s.log))
	km := geo.RouteKm(airport.Points(route))
	respondWithSuccess(w, http.StatusOK, distanceView{
		Route: route,
		Km:    km,
		Nm:    units.KmToNm(km),
	})
}

func (s *server) handleAircraftList(w http.ResponseWriter, r *http.Request) {
	respondWithSuccess(w, http.StatusOK, s.catalog.EffectiveAll())
}

func (s *server) handleOverrideSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "aircraftID")
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.CruiseSpeed != nil && *req.CruiseSpeed < 0) || (req.HourlyRate != nil && *req.HourlyRate < 0) {
		respondWithError(w, http.StatusBadRequest, "override values must be non-negative")
		return
	}

	override := catalog.Override{CruiseSpeed: req.CruiseSpeed, HourlyRate: req.HourlyRate}
	if err := s.catalog.SetOverride(r.Context(), id, override); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	eff, err := s.catalog.Effective(id)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, eff)
}

func (s *server) handleOverrideClear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "aircraftID")
	if err := s.catalog.ClearOverride(r.Context(), id); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	eff, err := s.catalog.Effective(id)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, eff)
}

func (s *server) handleAirport(w http.ResponseWriter, r *http.Request) {
	code, err := airport.NormalizeCode(chi.URLParam(r, "code"))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	p, err := s.resolver.Resolve(r.Context(), code)
	if err != nil {
		if !errors.Is(err, airport.ErrUnknownAirport) && !errors.Is(err, airport.ErrInvalidCode) {
			requestLogger(r, s.log).Warnw("airport lookup failed", "code", code, "error", err)
			respondWithError(w, http.StatusBadGateway, "airport lookup failed")
			return
		}
		s.respondWithErr(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, airportView{Code: code, Point: p})
}

func (s *server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	respondWithSuccess(w, http.StatusCreated, viewOf(sess))
}

func (s *server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithErr(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondWithSuccess(w, http.StatusOK, viewOf(sess))
}

// handleSessionDelete drops the session from memory. Its persisted draft and
// snapshot stay, so the id can be reopened later.
func (s *server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := decodeState(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sess.Update(st); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, viewOf(sess))
}

func (s *server) handleSessionFreeze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.Freeze(r.Context()); err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, viewOf(sess))
}

func (s *server) handleSessionUnfreeze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Unfreeze(r.Context())
	respondWithSuccess(w, http.StatusOK, viewOf(sess))
}

func (s *server) document(w http.ResponseWriter, r *http.Request) (*session.Session, docdef.Definition, bool) {
	sess, ok := s.session(w, r)
	if !ok {
		return nil, docdef.Definition{}, false
	}
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, docdef.Definition{}, false
	}
	if sel := r.URL.Query().Get("selection"); sel != "" {
		req.Selection = sel
	}

	def, err := sess.Document(docdef.ParseSelection(req.Selection), req.Options)
	if err != nil {
		s.respondWithErr(w, r, err)
		return nil, docdef.Definition{}, false
	}
	return sess, def, true
}

func (s *server) handleSessionDocument(w http.ResponseWriter, r *http.Request) {
	if _, def, ok := s.document(w, r); ok {
		respondWithSuccess(w, http.StatusOK, def)
	}
}

// handleSessionPDF renders the proposal. With ?upload=1 the PDF is stored in
// the bucket and its URL is returned instead of the bytes.
func (s *server) handleSessionPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdf == nil {
		respondWithError(w, http.StatusServiceUnavailable, "pdf rendering is not available")
		return
	}
	sess, def, ok := s.document(w, r)
	if !ok {
		return
	}

	pdf, err := s.pdf.Render(r.Context(), def)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}

	name := "proposta"
	if snap, frozen := sess.Snapshot(); frozen {
		name = snap.ID
	}

	if upload, _ := strconv.ParseBool(r.URL.Query().Get("upload")); upload {
		if s.uploader == nil {
			respondWithError(w, http.StatusServiceUnavailable, "object storage is not configured")
			return
		}
		url, err := s.uploader.UploadPDF(r.Context(), name, pdf)
		if err != nil {
			s.respondWithErr(w, r, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		respondWithSuccess(w, http.StatusOK, []store.SavedQuote{})
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	quotes, err := s.quotes.List(r.Context(), query, limit)
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, quotes)
}

func (s *server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		s.respondWithErr(w, r, store.ErrNotFound)
		return
	}
	q, err := s.quotes.Get(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		s.respondWithErr(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, q)
}

func viewOf(sess *session.Session) sessionView {
	v := sessionView{
		ID:      sess.ID,
		Results: sess.Results(),
		State:   sess.State(),
		Frozen:  sess.IsFrozen(),
	}
	if snap, ok := sess.Snapshot(); ok {
		v.Snapshot = &snap
	}
	return v
}
