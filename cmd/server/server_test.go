package main

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Simplici0/charterquote/internal/airport"
	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/db"
	"github.com/Simplici0/charterquote/internal/docdef"
	"github.com/Simplici0/charterquote/internal/maprender"
	"github.com/Simplici0/charterquote/internal/metrics"
	"github.com/Simplici0/charterquote/internal/migrations"
	"github.com/Simplici0/charterquote/internal/pdfrender"
	"github.com/Simplici0/charterquote/internal/quote"
	"github.com/Simplici0/charterquote/internal/session"
	"github.com/Simplici0/charterquote/internal/store"
)

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeUploader) UploadPDF(_ context.Context, quoteID string, pdf []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, quoteID)
	return "https://cdn.example.com/proposals/" + quoteID + ".pdf", nil
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("%s: got %.6f, want %.6f", name, got, want)
	}
}

func newTestServer(t *testing.T) (*server, *fakeUploader) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := migrations.Up(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	mem := store.NewMemory()
	reg := metrics.NewRegistry()
	cat := catalog.New(catalog.Defaults(), mem, nil)
	resolver := airport.StaticResolver{
		"SBBR": {Lat: -15.8711, Lng: -47.9186},
		"SBMO": {Lat: -9.5108, Lng: -35.7917},
	}
	quotes := store.NewQuotes(database)

	sessions := session.NewManager(session.Deps{
		Catalog:  cat,
		Resolver: resolver,
		Maps:     maprender.Noop{},
		Store:    mem,
		Quotes:   quotes,
		Metrics:  reg,
		Delay:    time.Hour,
	}, time.Hour)
	t.Cleanup(sessions.Close)

	printPDF := func(_ context.Context, html []byte, _ string) ([]byte, error) {
		return append([]byte("%PDF-1.4 "), html[:16]...), nil
	}
	up := &fakeUploader{}

	return &server{
		db:             database,
		catalog:        cat,
		sessions:       sessions,
		resolver:       resolver,
		quotes:         quotes,
		pdf:            pdfrender.NewWithPrinter(pdfrender.DefaultConfig(), printPDF, reg, nil),
		uploader:       up,
		metrics:        reg,
		upSince:        time.Now(),
		allowedOrigins: []string{"http://localhost:5173"},
	}, up
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/api/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionView
	decodeData(t, env, &view)
	if view.ID == "" {
		t.Fatalf("expected a session id")
	}
	return view.ID
}

func sampleState() quote.State {
	return quote.State{
		AircraftID:  "pc12",
		Origin:      "SBBR",
		Destination: "SBMO",
		ClientName:  "Joana",
		DistanceNm:  100,
		RatePerKm:   10,
		Commissions: []float64{5},
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, env := doJSON(t, srv.routes(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env.Status != "success" {
		t.Fatalf("expected success envelope, got %+v", env)
	}
}

func TestCalc_JSON(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, env := doJSON(t, srv.routes(), http.MethodPost, "/api/calc", quote.State{DistanceNm: 100, RatePerKm: 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res quote.Results
	decodeData(t, env, &res)
	if res.Distance == nil {
		t.Fatalf("expected a distance result")
	}
	nearlyEqual(t, "distance total", res.Distance.Total, 1852)
	if res.Time != nil {
		t.Fatalf("expected no time result without a cruise speed, got %+v", res.Time)
	}
}

func TestCalc_FormUsesLocaleNumbersAndCatalog(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{}
	form.Set("aircraft_id", "pc12")
	form.Set("distance_nm", "1.000,0")
	form.Set("rate_per_km", "10,00")
	form.Set("commissions", "5;2,5")

	req := httptest.NewRequest(http.MethodPost, "/api/calc", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var res quote.Results
	decodeData(t, env, &res)

	nearlyEqual(t, "distance subtotal", res.Distance.Subtotal, 18520)
	if got := len(res.Distance.Commissions); got != 2 {
		t.Fatalf("expected 2 commission lines, got %d", got)
	}
	nearlyEqual(t, "commission total", res.Distance.CommissionTotal, 18520*0.075)
	if res.Time == nil {
		t.Fatalf("expected a time result from the catalog cruise speed")
	}
	nearlyEqual(t, "hourly rate", res.Time.Rate, 11000)
}

func TestCalc_FormLegOverridesFollowLegIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{}
	form.Set("aircraft_id", "pc12")
	form.Add("leg_nm", "270")
	form.Add("leg_nm", "540")
	// hours typed on the first leg without ticking its box are ignored
	form.Set("leg_hours_0", "9")
	form.Set("leg_hours_1", "1,5")
	form.Set("leg_custom_1", "on")

	req := httptest.NewRequest(http.MethodPost, "/api/calc", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var res quote.Results
	decodeData(t, env, &res)
	if res.Time == nil || len(res.Time.Legs) != 2 {
		t.Fatalf("expected two time legs, got %+v", res.Time)
	}

	first, second := res.Time.Legs[0], res.Time.Legs[1]
	if first.Custom || !second.Custom {
		t.Fatalf("custom flag on wrong leg: first=%v second=%v", first.Custom, second.Custom)
	}
	nearlyEqual(t, "first leg hours", first.Hours, 1)
	nearlyEqual(t, "second leg hours", second.Hours, 1.5)
	nearlyEqual(t, "total hours", res.Time.TotalHours, 2.5)
}

func TestCalc_UnknownAircraft(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, env := doJSON(t, srv.routes(), http.MethodPost, "/api/calc", quote.State{AircraftID: "zz99", DistanceNm: 10})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(env.Error, "pick an aircraft") {
		t.Fatalf("expected guidance in error, got %q", env.Error)
	}
}

func TestCalc_RejectsUnknownFields(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := doJSON(t, srv.routes(), http.MethodPost, "/api/calc", map[string]any{"distanceMiles": 5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSession_FreezeBlocksEditsAndSavesQuote(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()
	id := createSession(t, h)

	rec, env := doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/state", sampleState())
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionView
	decodeData(t, env, &view)
	nearlyEqual(t, "distance total", view.Results.Distance.Total, 1852+92.6)

	rec, env = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/freeze", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("freeze: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeData(t, env, &view)
	if !view.Frozen || view.Snapshot == nil {
		t.Fatalf("expected a frozen snapshot, got %+v", view)
	}

	rec, env = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/state", sampleState())
	if rec.Code != http.StatusConflict {
		t.Fatalf("update while frozen: expected 409, got %d", rec.Code)
	}
	if !strings.Contains(env.Error, "unfreeze") {
		t.Fatalf("expected unfreeze hint, got %q", env.Error)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/freeze", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double freeze: expected 409, got %d", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/quotes?q=joana", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list quotes: expected 200, got %d", rec.Code)
	}
	var saved []store.SavedQuote
	decodeData(t, env, &saved)
	if len(saved) != 1 || saved[0].ID != view.Snapshot.ID {
		t.Fatalf("expected the frozen quote to be listed, got %+v", saved)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/quotes/"+saved[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get quote: expected 200, got %d", rec.Code)
	}
	var one store.SavedQuote
	decodeData(t, env, &one)
	if len(one.Snapshot) == 0 {
		t.Fatalf("expected the snapshot body on get")
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/sessions/"+id+"/freeze", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unfreeze: expected 200, got %d", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/state", sampleState())
	if rec.Code != http.StatusOK {
		t.Fatalf("update after unfreeze: expected 200, got %d", rec.Code)
	}
}

func TestSession_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()

	for _, id := range []string{"not-a-uuid", "6f1c7a7e-3a53-4c11-9a55-2f6f4f0f8b4e"} {
		rec, _ := doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", id, rec.Code)
		}
	}
}

func TestSession_DeleteThenReopen(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()
	id := createSession(t, h)

	if rec, _ := doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/state", sampleState()); rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	if rec, _ := doJSON(t, h, http.MethodDelete, "/api/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec, env := doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reopen: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionView
	decodeData(t, env, &view)
	if view.State.ClientName != "Joana" {
		t.Fatalf("expected the draft to be restored, got %+v", view.State)
	}
}

func TestSession_DocumentSelection(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()
	id := createSession(t, h)

	if rec, _ := doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/state", sampleState()); rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}

	rec, env := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/document", documentRequest{Selection: "method1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("document: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var def docdef.Definition
	decodeData(t, env, &def)
	if len(def.Content) == 0 {
		t.Fatalf("expected document content")
	}
	if strings.Contains(string(env.Data), "tempo de voo") {
		t.Fatalf("method1 document should not carry the time option: %s", env.Data)
	}

	// empty body is fine
	rec, _ = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/document", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("document without body: expected 200, got %d", rec.Code)
	}
}

func TestSession_PDFInlineAndUpload(t *testing.T) {
	srv, up := newTestServer(t)
	h := srv.routes()
	id := createSession(t, h)

	if rec, _ := doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/state", sampleState()); rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}

	rec, _ := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Fatalf("expected pdf bytes, got %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "proposta.pdf") {
		t.Fatalf("expected preview filename, got %q", cd)
	}

	_, env := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/freeze", nil)
	var view sessionView
	decodeData(t, env, &view)

	rec, env = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/pdf?upload=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	decodeData(t, env, &out)
	want := "https://cdn.example.com/proposals/" + view.Snapshot.ID + ".pdf"
	if out["url"] != want {
		t.Fatalf("expected url %q, got %q", want, out["url"])
	}
	if len(up.keys) != 1 {
		t.Fatalf("expected one upload, got %d", len(up.keys))
	}
}

func TestSession_PDFUploadWithoutBucket(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.uploader = nil
	h := srv.routes()
	id := createSession(t, h)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/pdf?upload=true", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAircraftOverrides(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()

	rate := 12500.0
	rec, env := doJSON(t, h, http.MethodPut, "/api/aircraft/pc12/override", overrideRequest{HourlyRate: &rate})
	if rec.Code != http.StatusOK {
		t.Fatalf("set override: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var eff catalog.Effective
	decodeData(t, env, &eff)
	nearlyEqual(t, "overridden rate", eff.HourlyRate, 12500)
	nearlyEqual(t, "default speed kept", eff.CruiseSpeed, 270)

	rec, env = doJSON(t, h, http.MethodPost, "/api/calc", quote.State{AircraftID: "pc12", DistanceNm: 270})
	if rec.Code != http.StatusOK {
		t.Fatalf("calc: expected 200, got %d", rec.Code)
	}
	var res quote.Results
	decodeData(t, env, &res)
	nearlyEqual(t, "time rate", res.Time.Rate, 12500)

	rec, env = doJSON(t, h, http.MethodDelete, "/api/aircraft/pc12/override", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear override: expected 200, got %d", rec.Code)
	}
	decodeData(t, env, &eff)
	nearlyEqual(t, "default rate restored", eff.HourlyRate, 11000)

	neg := -1.0
	if rec, _ := doJSON(t, h, http.MethodPut, "/api/aircraft/pc12/override", overrideRequest{CruiseSpeed: &neg}); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative override: expected 400, got %d", rec.Code)
	}
	if rec, _ := doJSON(t, h, http.MethodPut, "/api/aircraft/zz99/override", overrideRequest{HourlyRate: &rate}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown aircraft: expected 404, got %d", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/aircraft", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list aircraft: expected 200, got %d", rec.Code)
	}
	var all []catalog.Effective
	decodeData(t, env, &all)
	if len(all) != len(catalog.Defaults()) {
		t.Fatalf("expected %d aircraft, got %d", len(catalog.Defaults()), len(all))
	}
}

func TestAirportLookup(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()

	rec, env := doJSON(t, h, http.MethodGet, "/api/airports/sbbr", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got airportView
	decodeData(t, env, &got)
	if got.Code != "SBBR" {
		t.Fatalf("expected normalized code, got %q", got.Code)
	}
	nearlyEqual(t, "lat", got.Point.Lat, -15.8711)

	if rec, _ := doJSON(t, h, http.MethodGet, "/api/airports/BR", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("short code: expected 400, got %d", rec.Code)
	}
	if rec, _ := doJSON(t, h, http.MethodGet, "/api/airports/SBZZ", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown airport: expected 404, got %d", rec.Code)
	}
}

func TestRouteDistance(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, env := doJSON(t, srv.routes(), http.MethodGet, "/api/distance?codes=SBBR,SBZZ,SBMO", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got distanceView
	decodeData(t, env, &got)
	if len(got.Route) != 2 {
		t.Fatalf("expected the unknown stop to be skipped, got %+v", got.Route)
	}
	if got.Km < 1450 || got.Km > 1550 {
		t.Fatalf("unexpected SBBR-SBMO distance %.1f km", got.Km)
	}

	if rec, _ := doJSON(t, srv.routes(), http.MethodGet, "/api/distance?codes=SBBR", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("single code: expected 400, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.routes()
	doJSON(t, h, http.MethodGet, "/healthz", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "charterquote_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
