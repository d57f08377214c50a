package notifier

import (
	"context"
	"log"
	"time"
)

// Message is a rendered, user-facing notification. ID keys read-marking in
// the feed.
type Message struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sentAt"`
}

// Notifier delivers a message over some channel (console, LINE, email).
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleNotifier writes messages to the process log. SMS and LINE delivery
// plug in behind the same interface.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("[notify] -> %s: %s | %s", msg.UserID, msg.Title, msg.Body)
	return nil
}

// HumanTimeRange renders an RFC3339 pair as "2 Sep 2026 19:00-21:00" for
// message bodies. Unparseable input falls back to the raw strings.
func HumanTimeRange(startRFC, endRFC string) string {
	start, err1 := time.Parse(time.RFC3339, startRFC)
	end, err2 := time.Parse(time.RFC3339, endRFC)
	if err1 != nil || err2 != nil {
		return startRFC + " - " + endRFC
	}
	return start.Format("2 Jan 2006 15:04") + "-" + end.Format("15:04")
}
