package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/openadmod/console/internal/cache"
	"github.com/openadmod/console/internal/config"
	"github.com/openadmod/console/internal/listview"
	"github.com/openadmod/console/internal/middleware"
	"github.com/openadmod/console/internal/models"
	"github.com/openadmod/console/internal/moderation"
	"github.com/openadmod/console/internal/observability"
	"github.com/openadmod/console/internal/prefs"
	"github.com/openadmod/console/internal/stats"
)

// requestRecorder captures the request-metric labels the middleware emits.
type requestRecorder struct {
	observability.NoOpRegistry
	mu       sync.Mutex
	statuses []string
}

func (r *requestRecorder) IncrementRequests(endpoint, method, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *requestRecorder) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

// fakeUpstream simulates the moderation REST API behind the console.
type fakeUpstream struct {
	mu           sync.Mutex
	listCalls    int
	listStatus   int // non-zero forces this status on the list endpoint
	listQueries  []url.Values
	approveCalls int
	rejectCalls  int
	changesCalls int
	lastReject   moderation.RejectPayload
	lastChanges  moderation.RequestChangesPayload
}

func (f *fakeUpstream) handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/v1/ads", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.listCalls++
		f.listQueries = append(f.listQueries, req.URL.Query())
		status := f.listStatus
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}

		ads := make([]models.Advertisement, 10)
		for i := range ads {
			ads[i] = models.Advertisement{
				ID:     i + 1,
				Title:  "Объявление",
				Status: models.StatusPending,
				Price:  1000,
			}
		}
		json.NewEncoder(w).Encode(moderation.ListResponse{
			Ads: ads,
			Pagination: models.PaginationInfo{
				CurrentPage:  1,
				TotalPages:   5,
				TotalItems:   47,
				ItemsPerPage: 10,
			},
		})
	}).Methods("GET")

	r.HandleFunc("/api/v1/ads/{id}", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(models.AdvertisementDetails{
			Advertisement: models.Advertisement{ID: 42, Title: "Гараж", Status: models.StatusPending},
			ModerationHistory: []models.ModerationHistoryItem{
				{ID: 1, AdID: 42, Action: models.ActionCreated, Timestamp: "2026-08-01T09:00:00Z"},
				{ID: 2, AdID: 42, Action: models.ActionRequestChanges, Timestamp: "2026-08-02T09:00:00Z"},
			},
		})
	}).Methods("GET")

	r.HandleFunc("/api/v1/ads/{id}/approve", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.approveCalls++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")

	r.HandleFunc("/api/v1/ads/{id}/reject", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.rejectCalls++
		json.NewDecoder(req.Body).Decode(&f.lastReject)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")

	r.HandleFunc("/api/v1/ads/{id}/request-changes", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.changesCalls++
		json.NewDecoder(req.Body).Decode(&f.lastChanges)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")

	r.HandleFunc("/api/v1/stats/summary", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(moderation.SummaryData{
			TotalReviewed:      247,
			ApprovedPercentage: 74.2,
			RejectedPercentage: 18.1,
			AverageReviewTime:  3.5,
		})
	}).Methods("GET")

	r.HandleFunc("/api/v1/stats/chart/activity", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode([]moderation.ActivityData{
			{Date: "2026-08-25", Approved: 10, Rejected: 3, RequestChanges: 1},
		})
	}).Methods("GET")

	r.HandleFunc("/api/v1/stats/chart/decisions", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(moderation.DecisionsData{Approved: 74, Rejected: 18, RequestChanges: 8})
	}).Methods("GET")

	r.HandleFunc("/api/v1/stats/chart/categories", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"Электроника": 30, "Авто": 12})
	}).Methods("GET")

	return r
}

type fixture struct {
	upstream *fakeUpstream
	router   *mux.Router
	srv      *Server
	logs     *observer.ObservedLogs
	requests *requestRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	upstream := &fakeUpstream{}
	backend := httptest.NewServer(upstream.handler())
	t.Cleanup(backend.Close)

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	metrics := observability.NewNoOpRegistry()
	requests := &requestRecorder{}
	cfg := config.Config{PageLimit: 10}

	client := moderation.NewClient(backend.URL, 2*time.Second, logger, metrics)
	store := cache.NewMemory()
	fetcher := listview.NewFetcher(client, store, 30*time.Second, logger, metrics)
	statsSvc := stats.NewService(client, store, 30*time.Second, logger)
	prefStore := prefs.Open(filepath.Join(t.TempDir(), "prefs.json"), logger)

	srv := NewServer(logger, client, fetcher, statsSvc, prefStore, metrics, cfg)

	r := mux.NewRouter()
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithTraceLogger(logger))
	r.Use(WithRequestMetrics(requests))
	console := r.PathPrefix("/console").Subrouter()
	console.HandleFunc("/ads", srv.ListAdsHandler).Methods("GET")
	console.HandleFunc("/ads/{id}", srv.AdDetailsHandler).Methods("GET")
	console.HandleFunc("/ads/{id}/approve", srv.ApproveHandler).Methods("POST")
	console.HandleFunc("/ads/{id}/reject", srv.RejectHandler).Methods("POST")
	console.HandleFunc("/ads/{id}/request-changes", srv.RequestChangesHandler).Methods("POST")
	console.HandleFunc("/stats", srv.StatsHandler).Methods("GET")
	console.HandleFunc("/theme", srv.ThemeHandler).Methods("GET")
	console.HandleFunc("/theme", srv.SetThemeHandler).Methods("PUT")
	r.HandleFunc("/health", srv.HealthHandler).Methods("GET")

	return &fixture{upstream: upstream, router: r, srv: srv, logs: logs, requests: requests}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListAdsReturnsPageWithCursorAtTop(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/console/ads", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[listResponse](t, rec)
	assert.Len(t, resp.Ads, 10)
	assert.Equal(t, 47, resp.Pagination.TotalItems)
	assert.Equal(t, 5, resp.Pagination.TotalPages)
	assert.Equal(t, 0, resp.SelectedIndex)

	// Defaults reach the upstream: pending only, newest first.
	require.Len(t, f.upstream.listQueries, 1)
	q := f.upstream.listQueries[0]
	assert.Equal(t, []string{models.StatusPending}, q["status"])
	assert.Equal(t, "createdAt", q.Get("sortBy"))
	assert.Equal(t, "desc", q.Get("sortOrder"))
	assert.Equal(t, "1", q.Get("page"))
}

func TestListAdsServesRepeatFromCache(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(t, "GET", "/console/ads?status=approved", "").Code)
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/console/ads?status=approved", "").Code)
	assert.Equal(t, 1, f.upstream.listCalls, "identical query inside the staleness window is one upstream call")

	require.Equal(t, http.StatusOK, f.do(t, "GET", "/console/ads?status=rejected", "").Code)
	assert.Equal(t, 2, f.upstream.listCalls, "changed filter is a different cache entry")
}

func TestListAdsForwardsFiltersAndSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/console/ads?categoryId=7&minPrice=100&maxPrice=5000&sortBy=price&sortOrder=asc&search=%20гараж%20&page=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.upstream.listQueries, 1)
	q := f.upstream.listQueries[0]
	assert.Equal(t, "7", q.Get("categoryId"))
	assert.Equal(t, "100", q.Get("minPrice"))
	assert.Equal(t, "5000", q.Get("maxPrice"))
	assert.Equal(t, "price", q.Get("sortBy"))
	assert.Equal(t, "asc", q.Get("sortOrder"))
	assert.Equal(t, "гараж", q.Get("search"), "search is trimmed before the fetch")
	assert.Equal(t, "3", q.Get("page"))
}

func TestListAdsRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/console/ads?status=archived", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/console/ads?page=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/console/ads?categoryId=oops", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/console/ads?sortBy=views", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/console/ads?sortOrder=sideways", "").Code)
	assert.Equal(t, 0, f.upstream.listCalls, "invalid input never reaches the upstream")
}

func TestAdDetailsSortsHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/console/ads/42", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[detailResponse](t, rec)
	require.NotNil(t, resp.Ad)
	assert.Equal(t, 42, resp.Ad.ID)
	require.Len(t, resp.History, 2)
	assert.Equal(t, 2, resp.History[0].ID)
	assert.Equal(t, 1, resp.History[1].ID)
}

func TestAdDetailsRejectsInvalidID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/console/ads/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "Некорректный идентификатор объявления", body["error"])
}

func TestApprovePatchesStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/console/ads/42/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[detailResponse](t, rec)
	assert.Equal(t, models.StatusApproved, resp.Ad.Status)
	assert.Equal(t, 1, f.upstream.approveCalls)
}

func TestRejectWithoutReasonOrCommentIs422(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/console/ads/42/reject", `{"reasons":[],"comment":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, f.upstream.rejectCalls, "validation failure must not reach the upstream")

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "Укажите причину отклонения или оставьте комментарий", body["error"])
}

func TestRejectUnknownReasonCodeIs400(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/console/ads/42/reject", `{"reasons":["spite"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.upstream.rejectCalls)
}

func TestRejectSendsReasonLabels(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/console/ads/42/reject", `{"reasons":["banned","fraud_suspected"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[detailResponse](t, rec)
	assert.Equal(t, models.StatusRejected, resp.Ad.Status)

	f.upstream.mu.Lock()
	defer f.upstream.mu.Unlock()
	assert.Equal(t, "Запрещённый товар", f.upstream.lastReject.Reason)
	assert.Equal(t, "Запрещённый товар, Подозрение на мошенничество", f.upstream.lastReject.Comment)
}

func TestRequestChangesFallsBackToCannedComment(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/console/ads/42/request-changes", `{"comment":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[detailResponse](t, rec)
	assert.Equal(t, models.StatusPending, resp.Ad.Status)

	f.upstream.mu.Lock()
	defer f.upstream.mu.Unlock()
	assert.NotEmpty(t, f.upstream.lastChanges.Comment)
	assert.Contains(t, f.upstream.lastChanges.Comment, "уточните описание")
}

func TestStatsSnapshotEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/console/stats?period=7d", "")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decode[models.StatsSnapshot](t, rec)
	assert.Equal(t, 247, snap.Summary.Checked)
	require.Len(t, snap.Activity, 1)
	assert.Equal(t, "25.08", snap.Activity[0].DayLabel)
	assert.Equal(t, 74, snap.Decisions.Approved)
	require.Len(t, snap.Categories, 2)
	assert.Equal(t, "Электроника", snap.Categories[0].Category)
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/console/stats?period=quarter", "").Code)
}

func TestThemeRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/console/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prefs.ThemeLight, decode[themePayload](t, rec).Theme)

	rec = f.do(t, "PUT", "/console/theme", `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/console/theme", "")
	assert.Equal(t, prefs.ThemeDark, decode[themePayload](t, rec).Theme)
}

func TestThemeRejectsUnknownValue(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "PUT", "/console/theme", `{"theme":"sepia"}`).Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestUpstreamFailureLogsRequestID(t *testing.T) {
	f := newFixture(t)
	f.upstream.listStatus = http.StatusInternalServerError

	req := httptest.NewRequest("GET", "/console/ads", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-test-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	entries := f.logs.FilterMessage("list ads").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-test-1", entries[0].ContextMap()["request_id"])
}

func TestRequestMetricsLabelStatusNumerically(t *testing.T) {
	f := newFixture(t)

	f.do(t, "GET", "/health", "")
	assert.Equal(t, "200", f.requests.lastStatus())

	f.do(t, "GET", "/console/ads?status=archived", "")
	assert.Equal(t, "400", f.requests.lastStatus())
}

func TestSessionRegistryEvictsIdleEntries(t *testing.T) {
	f := newFixture(t)
	srv := f.srv

	first := srv.session(1)
	srv.session(2)

	srv.sessionsMu.Lock()
	srv.sessions[1].lastUsed = time.Now().Add(-2 * srv.sessionTTL)
	srv.sessionsMu.Unlock()

	srv.session(3)

	srv.sessionsMu.Lock()
	_, hasStale := srv.sessions[1]
	_, hasFresh := srv.sessions[2]
	_, hasNew := srv.sessions[3]
	srv.sessionsMu.Unlock()

	assert.False(t, hasStale, "idle entry is swept on the next lookup")
	assert.True(t, hasFresh)
	assert.True(t, hasNew)

	// A re-request for an evicted ad gets a fresh session.
	assert.NotSame(t, first, srv.session(1))
}

func TestSessionRegistryReusesLiveEntries(t *testing.T) {
	f := newFixture(t)
	assert.Same(t, f.srv.session(7), f.srv.session(7))
}
