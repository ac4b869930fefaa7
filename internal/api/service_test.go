package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nhle/school-notify/internal/model"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(NewClient(srv.URL, "test-token")), srv
}

func TestClientSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotRequestID string
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"success": true, "data": []}`))
	}))

	if _, err := svc.SentNotifications(context.Background()); err != nil {
		t.Fatalf("SentNotifications: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("expected an X-Request-ID header")
	}
}

func TestClient401ReturnsAuthError(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := svc.MyNotifications(context.Background(), 1, 50)
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestClientServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "boom"}`))
	}))

	err := svc.MarkAllAsRead(context.Background())

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", httpErr.Status)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d requests, want exactly 1 (no retries)", n)
	}
}

func TestSetTokenIsSafeDuringRequests(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": []}`))
	}))

	// Requests run on one goroutine while the token is swapped on another,
	// mirroring the background poll racing a login or logout.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := svc.SentNotifications(context.Background()); err != nil {
				t.Errorf("SentNotifications: %v", err)
				return
			}
		}
	}()
	for i := 0; i < 50; i++ {
		svc.client.SetToken(fmt.Sprintf("token-%d", i))
	}
	<-done
}

func TestMyNotificationsDecodesPage(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/schooladmin/getMyNotifications" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q, want 50", got)
		}
		w.Write([]byte(`{
			"success": true,
			"data": {
				"notifications": [
					{"id": 1, "title": "a", "is_read": 0},
					{"id": 2, "title": "b", "is_read": 1}
				],
				"unread_count": 1,
				"total": 2
			}
		}`))
	}))

	page, err := svc.MyNotifications(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("MyNotifications: %v", err)
	}
	if len(page.Notifications) != 2 {
		t.Fatalf("got %d records, want 2", len(page.Notifications))
	}
	if page.UnreadCount != 1 || page.Total != 2 {
		t.Errorf("counters = (%d, %d), want (1, 2)", page.UnreadCount, page.Total)
	}
}

func TestNotificationByID(t *testing.T) {
	var got getByIDRequest
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/schooladmin/getNotificationById" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Write([]byte(`{
			"success": true,
			"data": {"id": 7, "title": "Fee reminder", "is_read": 1}
		}`))
	}))

	raw, err := svc.NotificationByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("NotificationByID: %v", err)
	}
	if got.NotificationID != 7 {
		t.Errorf("request notification_id = %d, want 7", got.NotificationID)
	}
	if raw.ID == nil || *raw.ID != 7 || raw.Title != "Fee reminder" {
		t.Errorf("decoded record = %+v", raw)
	}
}

func TestDeleteNotificationsPayload(t *testing.T) {
	var got deleteNotificationRequest
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Write([]byte(`{"success": true}`))
	}))

	if err := svc.DeleteNotification(context.Background(), 9); err != nil {
		t.Fatalf("DeleteNotification: %v", err)
	}
	if len(got.NotificationIDs) != 1 || got.NotificationIDs[0] != 9 || got.IsAll != 0 {
		t.Errorf("payload = %+v, want single id 9, is_all 0", got)
	}

	got = deleteNotificationRequest{}
	if err := svc.DeleteNotifications(context.Background(), nil, true); err != nil {
		t.Fatalf("DeleteNotifications: %v", err)
	}
	if got.NotificationIDs == nil {
		t.Error("notification_ids must serialize as an empty array, not null")
	}
	if got.IsAll != 1 {
		t.Errorf("is_all = %d, want 1", got.IsAll)
	}
}

func TestMarkAllAsReadUsesPut(t *testing.T) {
	var method, path string
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.Write([]byte(`{"success": true}`))
	}))

	if err := svc.MarkAllAsRead(context.Background()); err != nil {
		t.Fatalf("MarkAllAsRead: %v", err)
	}
	if method != http.MethodPut || path != "/schooladmin/markAllAsRead" {
		t.Errorf("request = %s %s, want PUT /schooladmin/markAllAsRead", method, path)
	}
}

func TestNotificationRecipientsPaging(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/schooladmin/getNotificationRecipients/12" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "10" {
			t.Errorf("query = %v, want page=2 limit=10", q)
		}
		w.Write([]byte(`{
			"success": true,
			"data": {
				"recipients": [
					{"user_id": 1, "name": "A", "role": "student", "is_read": true, "read_at": "2026-05-01T10:00:00Z"},
					{"user_id": 2, "name": "B", "role": "student", "is_read": false}
				],
				"total": 14,
				"unread_count": 9
			}
		}`))
	}))

	page, err := svc.NotificationRecipients(context.Background(), 12, 2, 10)
	if err != nil {
		t.Fatalf("NotificationRecipients: %v", err)
	}
	if page.Total != 14 || page.Page != 2 || len(page.Receipts) != 2 {
		t.Errorf("page = %+v, want total 14 page 2 with 2 receipts", page)
	}
	if page.UnreadCount != 9 {
		t.Errorf("UnreadCount = %d, want 9", page.UnreadCount)
	}
	if !page.Receipts[0].IsRead || page.Receipts[0].ReadAt == nil {
		t.Errorf("first receipt = %+v, want read with timestamp", page.Receipts[0])
	}
}

func TestCreateNotification(t *testing.T) {
	var got CreateNotificationRequest
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/schooladmin/createNotification" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Write([]byte(`{"success": true, "data": {"notification_id": 77, "title": "t"}}`))
	}))

	raw, err := svc.CreateNotification(context.Background(), CreateNotificationRequest{
		Title:       "t",
		Description: "d",
		Targets:     []model.Target{{Type: model.TargetSchoolWide}},
	})
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if raw.NotificationID == nil || *raw.NotificationID != 77 {
		t.Errorf("created id = %v, want 77", raw.NotificationID)
	}
	if got.Title != "t" || len(got.Targets) != 1 {
		t.Errorf("request payload = %+v", got)
	}
}

func TestSentNotificationsEnvelopeShapes(t *testing.T) {
	bodies := []string{
		`[{"notification_id": 1, "title": "x"}]`,
		`{"success": true, "data": [{"notification_id": 1, "title": "x"}]}`,
		`{"success": true, "data": {"notifications": [{"notification_id": 1, "title": "x"}]}}`,
	}

	for _, body := range bodies {
		body := body
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		list, err := svc.SentNotifications(context.Background())
		if err != nil {
			t.Errorf("SentNotifications(%s): %v", body, err)
			continue
		}
		if len(list) != 1 || list[0].Title != "x" {
			t.Errorf("SentNotifications(%s) = %+v, want one record", body, list)
		}
	}
}
