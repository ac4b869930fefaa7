package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/school-notify/internal/model"
)

// RawBool tolerates the backend's inconsistent boolean encodings:
// true/false, 1/0, and "1"/"0".
type RawBool bool

// UnmarshalJSON decodes a boolean, number, or numeric string into a bool.
func (b *RawBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch s {
	case "true", "1", `"1"`, `"true"`:
		*b = true
		return nil
	case "false", "0", `"0"`, `"false"`, "null":
		*b = false
		return nil
	}
	// Any other number: non-zero is true.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*b = n != 0
		return nil
	}
	return fmt.Errorf("cannot decode %s as boolean", s)
}

// RawStatus tolerates the status token arriving as a string ("SENT") or a
// bare number (1). Numbers are kept as their decimal string form.
type RawStatus string

// UnmarshalJSON decodes a string or numeric status token.
func (s *RawStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = RawStatus(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = RawStatus(n.String())
		return nil
	}
	return fmt.Errorf("cannot decode %s as status", string(data))
}

// RawSender is the nested sender object some endpoints emit instead of
// flat sender_* fields.
type RawSender struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// RawTarget is a target as serialized by the server on sent records.
type RawTarget struct {
	TargetType string `json:"target_type"`
	ClassID    int64  `json:"class_id"`
	SectionID  int64  `json:"section_id"`
	Role       string `json:"role"`
}

// RawNotification is the loosely-typed record shape shared by the sent-list
// and inbox endpoints. The two endpoints disagree on field naming, so every
// ambiguous field carries all observed spellings; the normalizer resolves
// them with ordered fallback chains.
type RawNotification struct {
	NotificationID *int64 `json:"notification_id"`
	ID             *int64 `json:"id"`

	Title string `json:"title"`

	Description *string `json:"description"`
	Message     *string `json:"message"`

	CreatedAt    *string `json:"created_at"`
	CreatedAtAlt *string `json:"createdAt"`

	Status RawStatus `json:"status"`

	IsRead *RawBool `json:"is_read"`
	Read   *RawBool `json:"read"`
	ReadAt *string  `json:"read_at"`

	SenderName  *string    `json:"sender_name"`
	SenderRole  *string    `json:"sender_role"`
	SenderEmail *string    `json:"sender_email"`
	Sender      *RawSender `json:"sender"`

	RecipientsCount *int `json:"recipients_count"`
	TotalRecipients *int `json:"total_recipients"`
	ReadCount       *int `json:"read_count"`

	Targets []RawTarget `json:"targets"`
}

// CreateNotificationRequest is the payload for createNotification. Targets
// marshal with server-relevant fields only; display labels are declared
// `json:"-"` on model.Target and are stripped automatically.
type CreateNotificationRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Targets     []model.Target `json:"targets"`
}

// deleteNotificationRequest is the payload for deleteNotification.
type deleteNotificationRequest struct {
	NotificationIDs []int64 `json:"notification_ids"`
	IsAll           int     `json:"is_all"`
}

// getByIDRequest is the payload for getNotificationById.
type getByIDRequest struct {
	NotificationID int64 `json:"notification_id"`
}

// InboxPage is one page of the recipient inbox plus its counters.
type InboxPage struct {
	Notifications []RawNotification
	UnreadCount   int
	Total         int
}

// RecipientsPage is one page of sender-side read receipts. UnreadCount is
// the number of recipients who have not read the notification yet, across
// all pages.
type RecipientsPage struct {
	Receipts    []model.RecipientReceipt
	Total       int
	UnreadCount int
	Page        int
	Limit       int
}
