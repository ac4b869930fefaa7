package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/school-notify/internal/model"
)

// Service wraps the notification endpoints of the school-management API.
// Each operation returns the parsed payload as-is; normalization into the
// canonical record shape is the caller's job.
//
// There is deliberately no single-notification mark-as-read operation: the
// backend endpoint for it returns 404, so single-item read state is handled
// purely in client memory (see the inbox package).
type Service struct {
	client *Client
}

// NewService creates a notification service over the given API client.
func NewService(c *Client) *Service {
	return &Service{client: c}
}

// CreateNotification sends a new notification. The server assigns the id
// and computes the recipient count.
func (s *Service) CreateNotification(
	ctx context.Context,
	req CreateNotificationRequest,
) (*RawNotification, error) {
	var env Envelope
	err := s.client.Post(ctx, "/schooladmin/createNotification", req, &env)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	var raw RawNotification
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			return nil, fmt.Errorf("decoding created notification: %w", err)
		}
	}
	return &raw, nil
}

// SentNotifications retrieves the sender-side list. The endpoint has
// emitted three different envelope shapes over time; all are accepted.
func (s *Service) SentNotifications(ctx context.Context) ([]RawNotification, error) {
	var body json.RawMessage
	err := s.client.Get(ctx, "/schooladmin/getSentNotifications", &body)
	if err != nil {
		return nil, fmt.Errorf("fetching sent notifications: %w", err)
	}
	return decodeNotificationList(body)
}

// NotificationByID retrieves a single notification.
func (s *Service) NotificationByID(ctx context.Context, id int64) (*RawNotification, error) {
	var env Envelope
	err := s.client.Post(
		ctx, "/schooladmin/getNotificationById",
		getByIDRequest{NotificationID: id}, &env,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching notification %d: %w", id, err)
	}

	var raw RawNotification
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, fmt.Errorf("decoding notification %d: %w", id, err)
	}
	return &raw, nil
}

// NotificationRecipients retrieves one page of read receipts for a
// notification the current user sent.
func (s *Service) NotificationRecipients(
	ctx context.Context,
	id int64,
	page, limit int,
) (*RecipientsPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	path := fmt.Sprintf(
		"/schooladmin/getNotificationRecipients/%d?page=%d&limit=%d",
		id, page, limit,
	)

	var env Envelope
	if err := s.client.Get(ctx, path, &env); err != nil {
		return nil, fmt.Errorf("fetching recipients for %d: %w", id, err)
	}

	var data struct {
		Recipients  []model.RecipientReceipt `json:"recipients"`
		Total       int                      `json:"total"`
		UnreadCount int                      `json:"unread_count"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decoding recipients for %d: %w", id, err)
		}
	}

	return &RecipientsPage{
		Receipts:    data.Recipients,
		Total:       data.Total,
		UnreadCount: data.UnreadCount,
		Page:        page,
		Limit:       limit,
	}, nil
}

// MarkAllAsRead marks every notification in the current user's inbox as
// read on the server. This is the only network-backed read-marking
// operation the backend supports.
func (s *Service) MarkAllAsRead(ctx context.Context) error {
	if err := s.client.Put(ctx, "/schooladmin/markAllAsRead", nil, nil); err != nil {
		return fmt.Errorf("marking all as read: %w", err)
	}
	return nil
}

// DeleteNotifications deletes the given notifications, or everything when
// isAll is set.
func (s *Service) DeleteNotifications(ctx context.Context, ids []int64, isAll bool) error {
	req := deleteNotificationRequest{NotificationIDs: ids}
	if req.NotificationIDs == nil {
		req.NotificationIDs = []int64{}
	}
	if isAll {
		req.IsAll = 1
	}

	if err := s.client.Delete(ctx, "/schooladmin/deleteNotification", req, nil); err != nil {
		return fmt.Errorf("deleting notifications: %w", err)
	}
	return nil
}

// DeleteNotification deletes a single notification by id.
func (s *Service) DeleteNotification(ctx context.Context, id int64) error {
	return s.DeleteNotifications(ctx, []int64{id}, false)
}

// MyNotifications retrieves one page of the current user's inbox along
// with the server-side unread count.
func (s *Service) MyNotifications(ctx context.Context, page, limit int) (*InboxPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	path := fmt.Sprintf("/schooladmin/getMyNotifications?page=%d&limit=%d", page, limit)

	var body json.RawMessage
	if err := s.client.Get(ctx, path, &body); err != nil {
		return nil, fmt.Errorf("fetching inbox: %w", err)
	}

	notifications, err := decodeNotificationList(body)
	if err != nil {
		return nil, err
	}

	unread, total := listCounters(body)
	return &InboxPage{
		Notifications: notifications,
		UnreadCount:   unread,
		Total:         total,
	}, nil
}

// Classes retrieves the class list used to populate the audience builder.
func (s *Service) Classes(ctx context.Context) ([]model.Class, error) {
	var env Envelope
	if err := s.client.Get(ctx, "/schooladmin/getAllClassList", &env); err != nil {
		return nil, fmt.Errorf("fetching classes: %w", err)
	}

	var classes []model.Class
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &classes); err != nil {
			return nil, fmt.Errorf("decoding classes: %w", err)
		}
	}
	return classes, nil
}

// SectionsByClass retrieves the sections of one class.
func (s *Service) SectionsByClass(ctx context.Context, classID int64) ([]model.Section, error) {
	path := fmt.Sprintf("/schooladmin/getAllSections?class_id=%d", classID)

	var env Envelope
	if err := s.client.Get(ctx, path, &env); err != nil {
		return nil, fmt.Errorf("fetching sections for class %d: %w", classID, err)
	}

	var sections []model.Section
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &sections); err != nil {
			return nil, fmt.Errorf("decoding sections for class %d: %w", classID, err)
		}
	}
	return sections, nil
}
