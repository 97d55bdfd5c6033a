// Package storage provides persistence for pipeline runs.
package storage

import (
	"github.com/alienxp03/ideagen/internal/core"
)

// Storage defines the interface for run persistence.
type Storage interface {
	// Initialize sets up the storage (creates tables, etc.)
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Run operations
	CreateRun(run *core.Run) error
	GetRun(id string) (*core.Run, error)
	UpdateRun(run *core.Run) error
	DeleteRun(id string) error
	ListRuns(limit, offset int) ([]*core.RunSummary, error)
}
