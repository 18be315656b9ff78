package domain

import "time"

// MaxCommentLen bounds comment body size.
const MaxCommentLen = 2000

// Comment is a discussion entry on a ticket.
type Comment struct {
	ID        int64
	TicketID  int64
	UserID    int64
	Body      string
	CreatedAt time.Time
}
