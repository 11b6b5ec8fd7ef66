// Package report is the sink for unexpected errors. Expected failures
// (validation, not found, forbidden) never come through here; handlers
// map those to client errors directly.
package report

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reporter logs unexpected errors with a reference ID that is safe to
// hand back to the client.
type Reporter struct {
	log *logrus.Logger
}

func New() *Reporter {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	return &Reporter{log: log}
}

// NewWithLogger wires a caller-supplied logger, used by tests.
func NewWithLogger(log *logrus.Logger) *Reporter {
	return &Reporter{log: log}
}

// Error records the failure and returns the reference ID to surface in
// the generic error response.
func (r *Reporter) Error(op string, err error, fields map[string]any) string {
	refID := uuid.New().String()
	entry := r.log.WithFields(logrus.Fields{
		"reference_id": refID,
		"op":           op,
	})
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	entry.WithError(err).Error("unexpected error")
	return refID
}
