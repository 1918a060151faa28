package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// NotificationResponse is one feed entry.
type NotificationResponse struct {
	ID          string                  `json:"id"`
	Type        domain.NotificationType `json:"type"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	TicketID    *string                 `json:"ticket_id"`
	IsRead      bool                    `json:"is_read"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NotificationFeedResponse is the feed page plus the badge count.
type NotificationFeedResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int                    `json:"unread_count"`
}
