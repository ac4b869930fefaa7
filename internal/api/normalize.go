package api

import (
	"encoding/json"
	"fmt"

	"github.com/nhle/school-notify/internal/model"
)

// Normalize maps a loosely-typed server record into the canonical
// notification shape. The sent-list and inbox endpoints name fields
// differently, so each field resolves through an ordered fallback chain.
// Nil input yields nil; the function has no side effects and produces
// deep-equal output for identical input.
func Normalize(raw *RawNotification) *model.Notification {
	if raw == nil {
		return nil
	}

	n := &model.Notification{
		ID:        firstInt64(raw.NotificationID, raw.ID),
		Title:     raw.Title,
		Message:   firstString(raw.Description, raw.Message),
		CreatedAt: firstString(raw.CreatedAt, raw.CreatedAtAlt),
		Status:    string(raw.Status),
	}

	// Server read state: is_read === 1 || is_read === true || read === true,
	// defaulting to false. Local read state always starts false; the cache
	// layer restores any durable local marks afterwards.
	n.ServerRead = boolValue(raw.IsRead) || boolValue(raw.Read)

	if raw.ReadAt != nil && *raw.ReadAt != "" {
		readAt := *raw.ReadAt
		n.ReadAt = &readAt
	}

	n.SenderName = firstString(raw.SenderName, senderField(raw.Sender, func(s *RawSender) string { return s.Name }))
	n.SenderRole = firstString(raw.SenderRole, senderField(raw.Sender, func(s *RawSender) string { return s.Role }))
	n.SenderEmail = firstString(raw.SenderEmail, senderField(raw.Sender, func(s *RawSender) string { return s.Email }))

	n.RecipientsCount = firstInt(raw.RecipientsCount, raw.TotalRecipients)
	n.ReadCount = firstInt(raw.ReadCount)

	if len(raw.Targets) > 0 {
		n.Targets = make([]model.Target, 0, len(raw.Targets))
		for _, t := range raw.Targets {
			n.Targets = append(n.Targets, normalizeTarget(t))
		}
	}

	return n
}

// NormalizeAll converts a slice of raw records, preserving order.
func NormalizeAll(raws []RawNotification) []model.Notification {
	out := make([]model.Notification, 0, len(raws))
	for i := range raws {
		if n := Normalize(&raws[i]); n != nil {
			out = append(out, *n)
		}
	}
	return out
}

// normalizeTarget converts a delivered target and computes its display label.
func normalizeTarget(raw RawTarget) model.Target {
	t := model.Target{
		Type:      model.TargetType(raw.TargetType),
		ClassID:   raw.ClassID,
		SectionID: raw.SectionID,
		Role:      raw.Role,
	}
	t.Label = TargetLabel(t, "", "")
	return t
}

// TargetLabel computes the client-side display string for a target. The
// class and section names are supplied by the caller when known (the
// builder knows them; delivered targets fall back to numeric ids).
func TargetLabel(t model.Target, className, sectionName string) string {
	switch t.Type {
	case model.TargetSchoolWide:
		return "Everyone"
	case model.TargetClass:
		if className != "" {
			return className
		}
		return fmt.Sprintf("Class #%d", t.ClassID)
	case model.TargetClassSection:
		if className != "" && sectionName != "" {
			return className + " / " + sectionName
		}
		return fmt.Sprintf("Class #%d / Section #%d", t.ClassID, t.SectionID)
	case model.TargetRole:
		return "All " + t.Role + "s"
	default:
		return string(t.Type)
	}
}

// decodeNotificationList extracts the record array from any of the three
// envelope shapes the backend emits: a top-level array, a `data` array, or
// a `data.notifications` array.
func decodeNotificationList(body []byte) ([]RawNotification, error) {
	var direct []RawNotification
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding notification list: %w", err)
	}

	if len(env.Data) > 0 {
		var list []RawNotification
		if err := json.Unmarshal(env.Data, &list); err == nil {
			return list, nil
		}

		var nested struct {
			Notifications []RawNotification `json:"notifications"`
		}
		if err := json.Unmarshal(env.Data, &nested); err == nil && nested.Notifications != nil {
			return nested.Notifications, nil
		}
	}

	return nil, fmt.Errorf("unrecognized notification list shape")
}

// listCounters pulls the pagination counters that accompany inbox pages.
// The backend has emitted them both at the top level and under data.
func listCounters(body []byte) (unread, total int) {
	type counters struct {
		UnreadCount *int `json:"unread_count"`
		Total       *int `json:"total"`
	}

	var top struct {
		counters
		Data counters `json:"data"`
	}
	if err := json.Unmarshal(body, &top); err != nil {
		return 0, 0
	}

	unread = firstInt(top.Data.UnreadCount, top.UnreadCount)
	total = firstInt(top.Data.Total, top.Total)
	return unread, total
}

// firstString returns the first non-nil, non-empty candidate.
func firstString(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return ""
}

// firstInt64 returns the first non-nil candidate, or zero.
func firstInt64(candidates ...*int64) int64 {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

// firstInt returns the first non-nil candidate, or zero.
func firstInt(candidates ...*int) int {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return 0
}

// boolValue dereferences an optional RawBool, defaulting to false.
func boolValue(b *RawBool) bool {
	return b != nil && bool(*b)
}

// senderField projects a field out of an optional nested sender object.
func senderField(s *RawSender, get func(*RawSender) string) *string {
	if s == nil {
		return nil
	}
	v := get(s)
	if v == "" {
		return nil
	}
	return &v
}
