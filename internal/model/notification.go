package model

// Box identifies which side of the notification system a record belongs to:
// the recipient inbox or the sender-side sent list. The two sides are
// independent copies of the same server entity and may legitimately show
// divergent read state.
type Box string

const (
	BoxInbox Box = "inbox"
	BoxSent  Box = "sent"
)

// Notification is the canonical, post-normalization notification record.
// All views and the local cache work with this shape regardless of which
// endpoint the raw payload came from.
type Notification struct {
	// ID is the server-assigned notification identifier.
	ID int64 `json:"id"`

	// Title is the notification headline. Non-empty after normalization.
	Title string `json:"title"`

	// Message is the body text. May be empty.
	Message string `json:"message"`

	// CreatedAt is the server timestamp, kept as the ISO-8601 string the
	// backend sent. Display code parses it lazily; round-trips are lossless.
	CreatedAt string `json:"created_at"`

	// Status is the server-defined status token (e.g. "SENT").
	Status string `json:"status"`

	// LocalRead is set when the user opens the record in this client.
	// There is no server endpoint for single-item read marks, so this
	// flag is tracked purely on the client and never synced upstream.
	LocalRead bool `json:"local_read"`

	// ServerRead mirrors the backend's is_read flag as of the last fetch.
	ServerRead bool `json:"server_read"`

	// ReadAt is the server-side read timestamp. Recipient-side only.
	ReadAt *string `json:"read_at,omitempty"`

	// Sender identity. Recipient-side only; may be empty.
	SenderName  string `json:"sender_name,omitempty"`
	SenderRole  string `json:"sender_role,omitempty"`
	SenderEmail string `json:"sender_email,omitempty"`

	// Delivery counters. Sender-side only.
	RecipientsCount int `json:"recipients_count,omitempty"`
	ReadCount       int `json:"read_count,omitempty"`

	// Targets is the delivered audience. Sender-side only; absent on the
	// recipient inbox.
	Targets []Target `json:"targets,omitempty"`
}

// Read reports whether the record should display as read. Local and server
// read state are kept as distinct fields and merged only here, so the known
// client/server divergence stays visible in the type.
func (n *Notification) Read() bool {
	return n.LocalRead || n.ServerRead
}

// RecipientReceipt is one row of the sender-side read-receipt panel for a
// single notification. Fetched paginated.
type RecipientReceipt struct {
	UserID int64   `json:"user_id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Role   string  `json:"role"`
	IsRead bool    `json:"is_read"`
	ReadAt *string `json:"read_at,omitempty"`
}
