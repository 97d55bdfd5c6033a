package core

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier for a run or record.
func GenerateID() string {
	return uuid.New().String()
}

// NewRunTimestamp returns the timestamp string that namespaces a run. The
// vector-store collection, report files, and state file for a run are all
// keyed by this value, so concurrent runs never share state.
func NewRunTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}
