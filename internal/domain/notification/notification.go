package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marrakech-reviews/service-community/pkg/domain"
)

// Type groups notifications for display.
type Type string

const (
	TypeSystem Type = "system"
	TypeWallet Type = "wallet"
	TypeReward Type = "reward"
	TypeCoupon Type = "coupon"
	TypeAdmin  Type = "admin"
	TypeReview Type = "review"
)

// Notification is a message addressed to one account.
type Notification struct {
	id          uuid.UUID
	recipientID uuid.UUID
	typ         Type
	title       string
	message     string
	data        map[string]any
	isRead      bool
	createdAt   time.Time
}

// New creates an unread notification.
func New(recipientID uuid.UUID, typ Type, title, message string, data map[string]any) (*Notification, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if recipientID == uuid.Nil {
		return nil, domain.NewValidationError("recipient is required")
	}
	if title == "" || message == "" {
		return nil, domain.NewValidationError("title and message are required")
	}
	if typ == "" {
		typ = TypeSystem
	}
	return &Notification{
		id:          uuid.New(),
		recipientID: recipientID,
		typ:         typ,
		title:       title,
		message:     message,
		data:        data,
		createdAt:   time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Notification from persistence.
func Reconstruct(id, recipientID uuid.UUID, typ Type, title, message string, data map[string]any, isRead bool, createdAt time.Time) *Notification {
	return &Notification{
		id: id, recipientID: recipientID, typ: typ, title: title, message: message,
		data: data, isRead: isRead, createdAt: createdAt,
	}
}

func (n *Notification) ID() uuid.UUID          { return n.id }
func (n *Notification) RecipientID() uuid.UUID { return n.recipientID }
func (n *Notification) Type() Type             { return n.typ }
func (n *Notification) Title() string          { return n.title }
func (n *Notification) Message() string        { return n.message }
func (n *Notification) Data() map[string]any   { return n.data }
func (n *Notification) IsRead() bool           { return n.isRead }
func (n *Notification) CreatedAt() time.Time   { return n.createdAt }
