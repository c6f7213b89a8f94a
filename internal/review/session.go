// Package review implements the per-advertisement review session: loading
// the detail payload, the reject dialog state machine, and dispatching
// moderation decisions against the upstream API.
package review

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/openadmod/console/internal/models"
	"github.com/openadmod/console/internal/moderation"
	"github.com/openadmod/console/internal/observability"
)

// Validation errors. These are raised before any network call is made.
var (
	// ErrInvalidID means the requested advertisement id is not a positive
	// number.
	ErrInvalidID = errors.New("invalid advertisement id")
	// ErrActionInFlight means another decision for this advertisement has
	// not finished yet.
	ErrActionInFlight = errors.New("another action is in progress")
	// ErrRejectValidation means a reject was confirmed with no reason
	// selected and no comment entered.
	ErrRejectValidation = errors.New("reject needs a reason or a comment")
	// ErrNotLoaded means an action was dispatched before the detail loaded.
	ErrNotLoaded = errors.New("advertisement not loaded")
)

// DefaultRequestChangesComment is sent when the moderator requests changes
// without writing anything.
const DefaultRequestChangesComment = "Пожалуйста, уточните описание и корректно заполните характеристики."

// ActionClient is the slice of the moderation client a session needs.
type ActionClient interface {
	GetAdDetails(ctx context.Context, id int) (*models.AdvertisementDetails, error)
	Approve(ctx context.Context, id int) error
	Reject(ctx context.Context, id int, payload moderation.RejectPayload) error
	RequestChanges(ctx context.Context, id int, payload moderation.RequestChangesPayload) error
}

// BuildRejectPayload assembles the wire payload for a rejection. It reports
// false when neither a reason code nor a non-empty comment is present, in
// which case nothing must be sent. When the comment is blank the
// comma-joined labels of the selected reasons become the comment; the label
// of the first selected reason is the canonical reason field.
func BuildRejectPayload(reasons []string, comment string) (moderation.RejectPayload, bool) {
	trimmed := strings.TrimSpace(comment)
	if len(reasons) == 0 && trimmed == "" {
		return moderation.RejectPayload{}, false
	}

	primary := models.ReasonOther
	if len(reasons) > 0 {
		primary = reasons[0]
	}

	sent := trimmed
	if sent == "" {
		labels := make([]string, 0, len(reasons))
		for _, code := range reasons {
			labels = append(labels, models.RejectReasonLabel(code))
		}
		sent = strings.Join(labels, ", ")
	}

	return moderation.RejectPayload{
		Reason:  models.RejectReasonLabel(primary),
		Comment: sent,
	}, true
}

// SortHistory orders a moderation log newest first. The sort is stable, so
// entries sharing a timestamp keep the server-supplied order.
func SortHistory(items []models.ModerationHistoryItem) []models.ModerationHistoryItem {
	sorted := append([]models.ModerationHistoryItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time().After(sorted[j].Time())
	})
	return sorted
}

// Session is the review state for one advertisement. One decision may be in
// flight at a time; a second dispatch while the first is pending fails with
// ErrActionInFlight. The cached detail is patched only after the upstream
// confirms a decision, never optimistically.
type Session struct {
	client  ActionClient
	logger  *zap.Logger
	metrics observability.MetricsRegistry

	mu             sync.Mutex
	id             int
	ad             *models.AdvertisementDetails
	history        []models.ModerationHistoryItem
	historyLoading bool
	actionInFlight bool
	lastError      string

	dialogOpen    bool
	rejectReasons []string
	rejectComment string
	rejectTouched bool

	// historyReloaded is signalled after each async history reload; tests
	// synchronize on it.
	historyReloaded chan struct{}
}

// NewSession creates a session for the advertisement with the given id.
func NewSession(id int, client ActionClient, logger *zap.Logger, metrics observability.MetricsRegistry) *Session {
	return &Session{
		id:              id,
		client:          client,
		logger:          logger,
		metrics:         metrics,
		historyReloaded: make(chan struct{}, 1),
	}
}

// Load fetches the detail payload. An id that is not a positive number is
// refused locally without touching the network.
func (s *Session) Load(ctx context.Context) error {
	if s.id <= 0 {
		s.setError("Некорректный идентификатор объявления")
		return ErrInvalidID
	}

	ad, err := s.client.GetAdDetails(ctx, s.id)
	if err != nil {
		s.logger.Error("load ad details", zap.Int("ad_id", s.id), zap.Error(err))
		s.setError(moderation.UserMessage(err))
		return err
	}

	s.mu.Lock()
	s.ad = ad
	s.history = SortHistory(ad.ModerationHistory)
	s.lastError = ""
	s.mu.Unlock()
	return nil
}

// ReloadHistory refetches the detail payload and replaces the history log.
// A failed reload keeps the previous log; the decision that triggered it
// has already succeeded.
func (s *Session) ReloadHistory(ctx context.Context) error {
	if s.id <= 0 {
		return ErrInvalidID
	}

	s.mu.Lock()
	s.historyLoading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.historyLoading = false
		s.mu.Unlock()
	}()

	ad, err := s.client.GetAdDetails(ctx, s.id)
	if err != nil {
		s.logger.Warn("reload history", zap.Int("ad_id", s.id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.history = SortHistory(ad.ModerationHistory)
	s.mu.Unlock()
	return nil
}

// Approve marks the advertisement approved. On success the cached status is
// patched and the history reloads in the background.
func (s *Session) Approve(ctx context.Context) error {
	return s.dispatch(ctx, models.ActionApproved, func(ctx context.Context) error {
		return s.client.Approve(ctx, s.id)
	}, func() {
		s.ad.Status = models.StatusApproved
	})
}

// OpenRejectDialog opens the reject dialog.
func (s *Session) OpenRejectDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogOpen = true
}

// CloseRejectDialog cancels the dialog. Reasons and comment the moderator
// already entered survive a cancel; only a successful confirm clears them.
// The touched flag resets so reopening starts without a validation banner.
func (s *Session) CloseRejectDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogOpen = false
	s.rejectTouched = false
}

// ToggleRejectReason adds the reason code to the selection, or removes it
// when already selected. Insertion order is preserved; the first selected
// code becomes the canonical reason on confirm.
func (s *Session) ToggleRejectReason(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.rejectReasons {
		if existing == code {
			s.rejectReasons = append(s.rejectReasons[:i], s.rejectReasons[i+1:]...)
			return
		}
	}
	s.rejectReasons = append(s.rejectReasons, code)
}

// SetRejectReasons replaces the reason selection wholesale, preserving the
// given order. Programmatic callers use this instead of toggling.
func (s *Session) SetRejectReasons(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectReasons = append([]string(nil), codes...)
}

// SetRejectComment replaces the reject comment text.
func (s *Session) SetRejectComment(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectComment = v
}

// ConfirmReject validates and dispatches the rejection. With no reason
// selected and a blank comment it aborts locally: the form is marked
// touched, the dialog stays open and no network call is made. On success
// the dialog closes and the form clears.
func (s *Session) ConfirmReject(ctx context.Context) error {
	s.mu.Lock()
	payload, ok := BuildRejectPayload(s.rejectReasons, s.rejectComment)
	if !ok {
		s.rejectTouched = true
		s.mu.Unlock()
		s.metrics.IncrementRejectValidationFailures()
		return ErrRejectValidation
	}
	s.mu.Unlock()

	return s.dispatch(ctx, models.ActionRejected, func(ctx context.Context) error {
		return s.client.Reject(ctx, s.id, payload)
	}, func() {
		s.ad.Status = models.StatusRejected
		s.dialogOpen = false
		s.rejectReasons = nil
		s.rejectComment = ""
		s.rejectTouched = false
	})
}

// RequestChanges sends the advertisement back to the seller. A blank
// comment is replaced by the canned text. On success the cached status
// returns to pending, since the listing re-enters the queue.
func (s *Session) RequestChanges(ctx context.Context) error {
	s.mu.Lock()
	comment := s.rejectComment
	s.mu.Unlock()
	if comment == "" {
		comment = DefaultRequestChangesComment
	}

	return s.dispatch(ctx, models.ActionRequestChanges, func(ctx context.Context) error {
		return s.client.RequestChanges(ctx, s.id, moderation.RequestChangesPayload{Comment: comment})
	}, func() {
		s.ad.Status = models.StatusPending
		s.rejectComment = ""
	})
}

// dispatch runs one decision under the single in-flight flag. onSuccess
// patches session state and runs only after the upstream confirmed; on
// failure all prior state is left untouched.
func (s *Session) dispatch(ctx context.Context, action string, call func(context.Context) error, onSuccess func()) error {
	s.mu.Lock()
	if s.ad == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if s.actionInFlight {
		s.mu.Unlock()
		return ErrActionInFlight
	}
	s.actionInFlight = true
	s.lastError = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.actionInFlight = false
		s.mu.Unlock()
	}()

	if err := call(ctx); err != nil {
		s.metrics.IncrementDecisions(action, "failure")
		s.logger.Error("moderation action", zap.String("action", action), zap.Int("ad_id", s.id), zap.Error(err))
		s.setError(moderation.UserMessage(err))
		return err
	}

	s.metrics.IncrementDecisions(action, "success")
	s.mu.Lock()
	onSuccess()
	s.mu.Unlock()

	// The history reload rides behind the response; the decision result is
	// not gated on it.
	go func() {
		_ = s.ReloadHistory(context.Background())
		select {
		case s.historyReloaded <- struct{}{}:
		default:
		}
	}()

	return nil
}

// HistoryReloaded exposes the reload notification channel.
func (s *Session) HistoryReloaded() <-chan struct{} {
	return s.historyReloaded
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// ID returns the advertisement id this session reviews.
func (s *Session) ID() int { return s.id }

// Ad returns the cached detail payload, nil before a successful Load.
func (s *Session) Ad() *models.AdvertisementDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ad == nil {
		return nil
	}
	ad := *s.ad
	return &ad
}

// History returns the moderation log, newest first.
func (s *Session) History() []models.ModerationHistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ModerationHistoryItem(nil), s.history...)
}

// HistoryLoading reports whether a history reload is in progress.
func (s *Session) HistoryLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLoading
}

// RejectForm returns the dialog state: open flag, selected reason codes in
// insertion order, comment text and the touched validation flag.
func (s *Session) RejectForm() (open bool, reasons []string, comment string, touched bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogOpen, append([]string(nil), s.rejectReasons...), s.rejectComment, s.rejectTouched
}

// UserError returns the last user-facing error message, empty when the last
// operation succeeded.
func (s *Session) UserError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}
