// Package monitor provides bt.Observer implementations: a structured
// transition logger, an in-memory recorder, Prometheus metrics and a Redis
// publisher.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/joeycumines/bteng/internal/bt"
)

// Record is the serializable form of a bt.TickEvent.
type Record struct {
	TreeID   string    `json:"tree"`
	NodeID   string    `json:"node_id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Previous string    `json:"previous"`
	Status   string    `json:"status"`
	Cause    string    `json:"cause"`
	Time     time.Time `json:"time"`
}

// NewRecord converts ev.
func NewRecord(ev bt.TickEvent) Record {
	return Record{
		TreeID:   ev.TreeID,
		NodeID:   ev.NodeID,
		Name:     ev.Name,
		Kind:     ev.Kind.String(),
		Previous: ev.Previous.String(),
		Status:   ev.Status.String(),
		Cause:    ev.Cause.String(),
		Time:     ev.Time,
	}
}

// Logger returns an observer logging status transitions at level. Ticks
// that leave the status unchanged are not logged.
func Logger(logger *slog.Logger, level slog.Level) bt.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ev bt.TickEvent) {
		if ev.Previous == ev.Status {
			return
		}
		logger.Log(context.Background(), level, "[BT] status changed",
			"tree", ev.TreeID,
			"node", ev.Name,
			"kind", ev.Kind,
			"from", ev.Previous,
			"to", ev.Status,
			"cause", ev.Cause)
	}
}
