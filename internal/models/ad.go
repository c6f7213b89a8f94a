package models

import "time"

// Moderation statuses an advertisement can be in. Status is the only field
// the console ever mutates, and only through the moderation actions.
const (
	StatusPending  = "pending"  // Waiting in the review queue.
	StatusApproved = "approved" // Passed moderation.
	StatusRejected = "rejected" // Failed moderation.
	StatusDraft    = "draft"    // Not yet submitted by the seller.
)

// Priorities a seller can purchase for a listing.
const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

// Moderation actions recorded in an advertisement's history log.
const (
	ActionCreated        = "created"
	ActionApproved       = "approved"
	ActionRejected       = "rejected"
	ActionRequestChanges = "requestChanges"
)

// StatusLabels maps a moderation status to the label shown to moderators.
var StatusLabels = map[string]string{
	StatusPending:  "На проверке",
	StatusApproved: "Одобрены",
	StatusRejected: "Отклонены",
	StatusDraft:    "Черновики",
}

// PriorityLabels maps a priority to its display label.
var PriorityLabels = map[string]string{
	PriorityNormal: "Обычное",
	PriorityUrgent: "Срочное",
}

// ActionLabels maps a moderation action to its display label.
var ActionLabels = map[string]string{
	ActionCreated:        "Создано",
	ActionApproved:       "Одобрено",
	ActionRejected:       "Отклонено",
	ActionRequestChanges: "Запрошены правки",
}

// StatusChipColor returns the badge color for a status. Unknown statuses get
// the neutral "default" color rather than a queue color.
func StatusChipColor(status string) string {
	switch status {
	case StatusApproved:
		return "success"
	case StatusRejected:
		return "error"
	case StatusDraft:
		return "default"
	case StatusPending:
		return "warning"
	default:
		return "default"
	}
}

// ValidStatus reports whether s is one of the known moderation statuses.
func ValidStatus(s string) bool {
	_, ok := StatusLabels[s]
	return ok
}

// Reject reason codes a moderator can attach to a rejection. The set is
// fixed; free-form explanations go through the comment field instead.
const (
	ReasonBanned               = "banned"
	ReasonWrongCategory        = "wrong_category"
	ReasonIncorrectDescription = "incorrect_description"
	ReasonPhotoProblems        = "photo_problems"
	ReasonFraudSuspected       = "fraud_suspected"
	ReasonOther                = "other"
)

// RejectReasonLabels maps a reason code to the human-readable text sent
// upstream. The moderation API stores labels, not codes.
var RejectReasonLabels = map[string]string{
	ReasonBanned:               "Запрещённый товар",
	ReasonWrongCategory:        "Неверная категория",
	ReasonIncorrectDescription: "Некорректное описание",
	ReasonPhotoProblems:        "Проблемы с фото",
	ReasonFraudSuspected:       "Подозрение на мошенничество",
	ReasonOther:                "Другое",
}

// RejectReasonLabel resolves a reason code to its label, falling back to the
// generic "other" label for codes the console does not know.
func RejectReasonLabel(code string) string {
	if label, ok := RejectReasonLabels[code]; ok {
		return label
	}
	return RejectReasonLabels[ReasonOther]
}

// Seller is the summary of a listing's owner included in ad payloads.
type Seller struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Rating       float64 `json:"rating,omitempty"`
	City         string  `json:"city,omitempty"`
	TotalAds     int     `json:"totalAds,omitempty"`
	RegisteredAt string  `json:"registeredAt,omitempty"`
}

// Advertisement is a listing as it appears in the review queue. Everything
// except Status is read-only from the console's perspective.
type Advertisement struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	CategoryID  int      `json:"categoryId,omitempty"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	Images      []string `json:"images,omitempty"`
	Seller      *Seller  `json:"seller,omitempty"`
}

// AdAttribute is one name/value pair from a listing's attribute sheet.
type AdAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AdStats holds the engagement counters shown on the detail page.
type AdStats struct {
	Views      int `json:"views"`
	Favorites  int `json:"favorites"`
	Complaints int `json:"complaints"`
}

// ModerationHistoryItem is one entry of an advertisement's append-only
// moderation log. Entries are written server-side as a side effect of
// actions; the console only re-orders them for display.
type ModerationHistoryItem struct {
	ID            int    `json:"id"`
	AdID          int    `json:"adId"`
	Action        string `json:"action"`
	ModeratorName string `json:"moderatorName"`
	Reason        string `json:"reason,omitempty"`
	Comment       string `json:"comment,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// Time parses the entry timestamp. Malformed timestamps sort as the zero
// time, which keeps them at the bottom of a newest-first history.
func (m ModerationHistoryItem) Time() time.Time {
	t, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AdvertisementDetails is the full detail payload for one listing.
type AdvertisementDetails struct {
	Advertisement
	Attributes        []AdAttribute           `json:"attributes,omitempty"`
	Stats             *AdStats                `json:"stats,omitempty"`
	ModerationHistory []ModerationHistoryItem `json:"moderationHistory,omitempty"`
}

// PaginationInfo mirrors the pagination block of list responses. It is
// recomputed from scratch on every fetch, never updated incrementally.
type PaginationInfo struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}
