package api

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/nhle/school-notify/internal/model"
)

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }
func intPtr(n int) *int       { return &n }

func boolPtr(b bool) *RawBool {
	v := RawBool(b)
	return &v
}

func TestNormalizeNil(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Fatalf("Normalize(nil) = %v, want nil", got)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := &RawNotification{
		NotificationID: int64Ptr(42),
		Title:          "Exam schedule",
		Description:    strPtr("Midterms start Monday."),
		CreatedAt:      strPtr("2026-03-02T08:00:00Z"),
		Status:         "SENT",
		IsRead:         boolPtr(true),
		SenderName:     strPtr("Principal Vance"),
		SenderRole:     strPtr("staff"),
	}

	first := Normalize(raw)
	second := Normalize(raw)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Normalize is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizeFieldFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  RawNotification
		want model.Notification
	}{
		{
			name: "sent-list spelling",
			raw: RawNotification{
				NotificationID:  int64Ptr(7),
				Title:           "Sports day",
				Description:     strPtr("Field events at 10am."),
				CreatedAt:       strPtr("2026-04-01T09:00:00Z"),
				RecipientsCount: intPtr(120),
				ReadCount:       intPtr(40),
			},
			want: model.Notification{
				ID:              7,
				Title:           "Sports day",
				Message:         "Field events at 10am.",
				CreatedAt:       "2026-04-01T09:00:00Z",
				RecipientsCount: 120,
				ReadCount:       40,
			},
		},
		{
			name: "inbox spelling",
			raw: RawNotification{
				ID:           int64Ptr(8),
				Title:        "Fee reminder",
				Message:      strPtr("Term fees due Friday."),
				CreatedAtAlt: strPtr("2026-04-02T09:00:00Z"),
				IsRead:       boolPtr(false),
			},
			want: model.Notification{
				ID:        8,
				Title:     "Fee reminder",
				Message:   "Term fees due Friday.",
				CreatedAt: "2026-04-02T09:00:00Z",
			},
		},
		{
			name: "primary spelling wins over fallback",
			raw: RawNotification{
				NotificationID: int64Ptr(1),
				ID:             int64Ptr(99),
				Description:    strPtr("primary"),
				Message:        strPtr("fallback"),
				CreatedAt:      strPtr("2026-01-01T00:00:00Z"),
				CreatedAtAlt:   strPtr("1999-01-01T00:00:00Z"),
			},
			want: model.Notification{
				ID:        1,
				Message:   "primary",
				CreatedAt: "2026-01-01T00:00:00Z",
			},
		},
		{
			name: "total_recipients fallback",
			raw: RawNotification{
				ID:              int64Ptr(3),
				TotalRecipients: intPtr(55),
			},
			want: model.Notification{ID: 3, RecipientsCount: 55},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(&tt.raw)
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("Normalize() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestNormalizeServerRead(t *testing.T) {
	tests := []struct {
		name string
		raw  RawNotification
		want bool
	}{
		{"is_read true", RawNotification{IsRead: boolPtr(true)}, true},
		{"is_read false", RawNotification{IsRead: boolPtr(false)}, false},
		{"read true", RawNotification{Read: boolPtr(true)}, true},
		{"both absent", RawNotification{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(&tt.raw)
			if n.ServerRead != tt.want {
				t.Errorf("ServerRead = %v, want %v", n.ServerRead, tt.want)
			}
			if n.LocalRead {
				t.Error("LocalRead must start false; only the client sets it")
			}
		})
	}
}

func TestNormalizeSenderFallback(t *testing.T) {
	raw := RawNotification{
		ID:     int64Ptr(5),
		Sender: &RawSender{Name: "Ms. Okafor", Role: "teacher", Email: "okafor@school.example"},
	}

	n := Normalize(&raw)
	if n.SenderName != "Ms. Okafor" || n.SenderRole != "teacher" || n.SenderEmail != "okafor@school.example" {
		t.Errorf("nested sender not applied: %+v", n)
	}

	// Flat fields win when both shapes are present.
	raw.SenderName = strPtr("Flat Name")
	n = Normalize(&raw)
	if n.SenderName != "Flat Name" {
		t.Errorf("SenderName = %q, want flat field to win", n.SenderName)
	}
}

func TestRawBoolEncodings(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"1", true},
		{"0", false},
		{`"1"`, true},
		{`"0"`, false},
		{"2", true},
		{"null", false},
	}

	for _, tt := range tests {
		var b RawBool
		if err := json.Unmarshal([]byte(tt.input), &b); err != nil {
			t.Errorf("unmarshal %s: %v", tt.input, err)
			continue
		}
		if bool(b) != tt.want {
			t.Errorf("RawBool(%s) = %v, want %v", tt.input, b, tt.want)
		}
	}
}

func TestRawStatusEncodings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"SENT"`, "SENT"},
		{"1", "1"},
		{`"draft"`, "draft"},
	}

	for _, tt := range tests {
		var s RawStatus
		if err := json.Unmarshal([]byte(tt.input), &s); err != nil {
			t.Errorf("unmarshal %s: %v", tt.input, err)
			continue
		}
		if string(s) != tt.want {
			t.Errorf("RawStatus(%s) = %q, want %q", tt.input, s, tt.want)
		}
	}
}

func TestDecodeNotificationListShapes(t *testing.T) {
	record := `{"notification_id": 1, "title": "hello"}`

	tests := []struct {
		name string
		body string
	}{
		{"top-level array", `[` + record + `]`},
		{"data array", `{"success": true, "data": [` + record + `]}`},
		{"data.notifications", `{"success": true, "data": {"notifications": [` + record + `], "unread_count": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := decodeNotificationList([]byte(tt.body))
			if err != nil {
				t.Fatalf("decodeNotificationList: %v", err)
			}
			if len(list) != 1 || list[0].Title != "hello" {
				t.Errorf("decoded %+v, want one record titled hello", list)
			}
		})
	}
}

func TestDecodeNotificationListRejectsGarbage(t *testing.T) {
	if _, err := decodeNotificationList([]byte(`"nope"`)); err == nil {
		t.Error("expected error for unrecognized shape")
	}
}

func TestListCounters(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantUnread int
		wantTotal  int
	}{
		{"under data", `{"data": {"notifications": [], "unread_count": 4, "total": 9}}`, 4, 9},
		{"top level", `{"unread_count": 2, "total": 5, "data": []}`, 2, 5},
		{"absent", `{"data": []}`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unread, total := listCounters([]byte(tt.body))
			if unread != tt.wantUnread || total != tt.wantTotal {
				t.Errorf("listCounters = (%d, %d), want (%d, %d)",
					unread, total, tt.wantUnread, tt.wantTotal)
			}
		})
	}
}

func TestTargetLabel(t *testing.T) {
	tests := []struct {
		name        string
		target      model.Target
		className   string
		sectionName string
		want        string
	}{
		{"school wide", model.Target{Type: model.TargetSchoolWide}, "", "", "Everyone"},
		{"class with name", model.Target{Type: model.TargetClass, ClassID: 5}, "Class 5", "", "Class 5"},
		{"class without name", model.Target{Type: model.TargetClass, ClassID: 5}, "", "", "Class #5"},
		{"section with names", model.Target{Type: model.TargetClassSection, ClassID: 5, SectionID: 2}, "Class 5", "Section B", "Class 5 / Section B"},
		{"section without names", model.Target{Type: model.TargetClassSection, ClassID: 5, SectionID: 2}, "", "", "Class #5 / Section #2"},
		{"role", model.Target{Type: model.TargetRole, Role: "teacher"}, "", "", "All teachers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetLabel(tt.target, tt.className, tt.sectionName)
			if got != tt.want {
				t.Errorf("TargetLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateRequestOmitsLabels(t *testing.T) {
	req := CreateNotificationRequest{
		Title:       "t",
		Description: "d",
		Targets: []model.Target{
			{Type: model.TargetClass, ClassID: 3, Label: "Class 3"},
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	targets := decoded["targets"].([]interface{})
	target := targets[0].(map[string]interface{})
	if _, ok := target["Label"]; ok {
		t.Error("display label must not be serialized")
	}
	if target["target_type"] != "class" {
		t.Errorf("target_type = %v, want class", target["target_type"])
	}
}
