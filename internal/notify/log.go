package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes events to the logger. It is the default for development.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n LogNotifier) Notify(_ context.Context, e Event) error {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"event":          e.Type,
		"reservation_id": e.ReservationID,
		"code":           e.Code,
		"status":         e.Status,
	}).Info("reservation event")
	return nil
}

func (LogNotifier) Close() error { return nil }

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
