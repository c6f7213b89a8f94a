package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/openadmod/console/internal/listview"
	"github.com/openadmod/console/internal/models"
	"github.com/openadmod/console/internal/moderation"
	"github.com/openadmod/console/internal/prefs"
	"github.com/openadmod/console/internal/review"
)

// listResponse is the payload of the queue endpoint: the fetched page plus
// the selection cursor, which starts at the top after every fetch.
type listResponse struct {
	Ads           []models.Advertisement `json:"ads"`
	Pagination    models.PaginationInfo  `json:"pagination"`
	SelectedIndex int                    `json:"selectedIndex"`
}

// ListAdsHandler serves one page of the review queue. Query parameters feed
// the query state store, which enforces the page/selection reset rules and
// builds the upstream query.
func (s *Server) ListAdsHandler(w http.ResponseWriter, r *http.Request) {
	store := listview.NewStore(s.Config.PageLimit)
	q := r.URL.Query()

	if statuses, ok := q["status"]; ok {
		for _, status := range statuses {
			if !models.ValidStatus(status) {
				writeError(w, http.StatusBadRequest, "unknown status: "+status)
				return
			}
		}
		store.SetStatusFilter(statuses)
	}
	if v := q.Get("categoryId"); v != "" && v != "all" {
		id, err := strconv.Atoi(v)
		if err != nil || id < 0 {
			writeError(w, http.StatusBadRequest, "invalid categoryId")
			return
		}
		store.SetCategory(id)
	}
	if v := q.Get("minPrice"); v != "" {
		store.SetMinPrice(v)
	}
	if v := q.Get("maxPrice"); v != "" {
		store.SetMaxPrice(v)
	}
	if v := q.Get("sortBy"); v != "" {
		switch v {
		case moderation.SortByCreatedAt, moderation.SortByPrice, moderation.SortByPriority:
			store.SetSortBy(v)
		default:
			writeError(w, http.StatusBadRequest, "unknown sortBy: "+v)
			return
		}
	}
	if v := q.Get("sortOrder"); v != "" {
		if v != moderation.SortAsc && v != moderation.SortDesc {
			writeError(w, http.StatusBadRequest, "unknown sortOrder: "+v)
			return
		}
		store.SetSortOrder(v)
	}
	if v := q.Get("search"); v != "" {
		store.SetSearchInput(v)
		store.ApplySearch()
	}
	// Page applies last: filters above reset it to 1 by design.
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		store.SetPage(page)
	}

	resp, err := s.Fetcher.Fetch(r.Context(), store.Query())
	if err != nil {
		s.requestLogger(r).Error("list ads", zap.Error(err))
		writeError(w, http.StatusBadGateway, moderation.UserMessage(err))
		return
	}
	store.SetListLength(len(resp.Ads))

	writeJSON(w, listResponse{
		Ads:           resp.Ads,
		Pagination:    resp.Pagination,
		SelectedIndex: store.Snapshot().SelectedIndex,
	})
}

func adID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type detailResponse struct {
	Ad      *models.AdvertisementDetails   `json:"ad"`
	History []models.ModerationHistoryItem `json:"history"`
}

// AdDetailsHandler serves the full detail payload with its history sorted
// newest first.
func (s *Server) AdDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := adID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор объявления")
		return
	}

	sess := s.session(id)
	if err := sess.Load(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, moderation.UserMessage(err))
		return
	}

	writeJSON(w, detailResponse{Ad: sess.Ad(), History: sess.History()})
}

// ApproveHandler approves an advertisement.
func (s *Server) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	s.dispatchAction(w, r, func(sess *review.Session) error {
		return sess.Approve(r.Context())
	})
}

type rejectRequest struct {
	Reasons []string `json:"reasons"`
	Comment string   `json:"comment"`
}

// RejectHandler rejects an advertisement. A request carrying neither a
// reason code nor a comment is refused locally with 422 and never reaches
// the upstream.
func (s *Server) RejectHandler(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	for _, code := range req.Reasons {
		if _, ok := models.RejectReasonLabels[code]; !ok {
			writeError(w, http.StatusBadRequest, "unknown reason code: "+code)
			return
		}
	}

	s.dispatchAction(w, r, func(sess *review.Session) error {
		sess.OpenRejectDialog()
		sess.SetRejectReasons(req.Reasons)
		sess.SetRejectComment(req.Comment)
		return sess.ConfirmReject(r.Context())
	})
}

type requestChangesRequest struct {
	Comment string `json:"comment"`
}

// RequestChangesHandler sends an advertisement back to the seller.
func (s *Server) RequestChangesHandler(w http.ResponseWriter, r *http.Request) {
	var req requestChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	s.dispatchAction(w, r, func(sess *review.Session) error {
		sess.SetRejectComment(req.Comment)
		return sess.RequestChanges(r.Context())
	})
}

// dispatchAction runs one decision through the ad's session, loading the
// detail first when this session has not seen it yet.
func (s *Server) dispatchAction(w http.ResponseWriter, r *http.Request, action func(*review.Session) error) {
	id, ok := adID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Некорректный идентификатор объявления")
		return
	}

	sess := s.session(id)
	if sess.Ad() == nil {
		if err := sess.Load(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, moderation.UserMessage(err))
			return
		}
	}

	err := action(sess)
	switch {
	case err == nil:
		writeJSON(w, detailResponse{Ad: sess.Ad(), History: sess.History()})
	case errors.Is(err, review.ErrActionInFlight):
		writeError(w, http.StatusConflict, "действие уже выполняется")
	case errors.Is(err, review.ErrRejectValidation):
		writeError(w, http.StatusUnprocessableEntity, "Укажите причину отклонения или оставьте комментарий")
	default:
		writeError(w, http.StatusBadGateway, moderation.UserMessage(err))
	}
}

// StatsHandler serves the normalized snapshot for a period.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.PeriodToday
	}
	if !models.ValidPeriod(period) {
		writeError(w, http.StatusBadRequest, "unknown period: "+period)
		return
	}

	snap, err := s.Stats.Snapshot(r.Context(), period)
	if err != nil {
		s.requestLogger(r).Error("stats snapshot", zap.String("period", period), zap.Error(err))
		writeError(w, http.StatusBadGateway, moderation.UserMessage(err))
		return
	}
	writeJSON(w, snap)
}

type themePayload struct {
	Theme string `json:"theme"`
}

// ThemeHandler returns the persisted theme preference.
func (s *Server) ThemeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, themePayload{Theme: s.Prefs.Theme()})
}

// SetThemeHandler persists a theme preference change.
func (s *Server) SetThemeHandler(w http.ResponseWriter, r *http.Request) {
	var req themePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.Prefs.SetTheme(req.Theme); err != nil {
		if errors.Is(err, prefs.ErrInvalidTheme) {
			writeError(w, http.StatusBadRequest, "unknown theme: "+req.Theme)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to persist theme")
		return
	}
	writeJSON(w, themePayload{Theme: s.Prefs.Theme()})
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
