// Package jobstore keeps the status snapshot of extraction jobs where pollers can read it
// while the job is still writing.
package jobstore

import (
	"context"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusExtracting = "extracting"
	StatusSaving     = "saving"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Snapshot is the externally visible state of one extraction job.
type Snapshot struct {
	DocumentID     uint       `json:"documentId"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	Message        string     `json:"message"`
	TotalQuestions int        `json:"totalQuestions"`
	TotalPages     int        `json:"totalPages"`
	ProcessedPages int        `json:"processedPages"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	ProcessedAt    *time.Time `json:"processedAt,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (s Snapshot) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Advance moves the snapshot to status. Progress never goes backwards, is clamped
// to [0,100] and is forced to 100 once the status is terminal.
func (s *Snapshot) Advance(status string, progress int, message string) {
	s.Status = status
	if progress > 100 {
		progress = 100
	}
	if progress > s.Progress {
		s.Progress = progress
	}
	if s.Terminal() {
		s.Progress = 100
	}
	s.Message = message
	s.UpdatedAt = time.Now()
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.ProcessedAt != nil {
		t := *s.ProcessedAt
		out.ProcessedAt = &t
	}
	return out
}

// Store holds snapshots keyed by document id. Update is an atomic read-modify-write;
// readers never observe a partially applied update.
type Store interface {
	Get(ctx context.Context, documentID uint) (Snapshot, bool, error)
	Set(ctx context.Context, s Snapshot) error
	Update(ctx context.Context, documentID uint, fn func(*Snapshot)) (Snapshot, error)
	Delete(ctx context.Context, documentID uint) error
}
