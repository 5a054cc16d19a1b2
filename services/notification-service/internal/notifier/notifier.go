package notifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Notifier delivers one message to one recipient. Email, SMS or chat senders can sit behind it.
type Notifier interface {
	Notify(ctx context.Context, to, subject, message string) error
}

// ConsoleNotifier logs messages instead of sending them.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Notify(_ context.Context, to, subject, message string) error {
	log.Printf("[notify] to=%s %s :: %s", to, subject, message)
	return nil
}

// Message is one delivered notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

func (r *Recorder) Notify(_ context.Context, to, subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, Message{To: to, Subject: subject, Body: message})
	return nil
}

// StayRange renders a stay as "2024-07-01 to 2024-07-04", trimming any time part.
func StayRange(start, end string) string {
	return fmt.Sprintf("%s to %s", dateOnly(start), dateOnly(end))
}

func dateOnly(s string) string {
	if i := strings.IndexByte(s, 'T'); i > 0 {
		return s[:i]
	}
	return s
}
