package domain

import (
	"fmt"
	"time"
)

// Receipt confirms an accepted report. It is never persisted.
type Receipt struct {
	ReportID  string    `json:"reportId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Report is the finalized payload handed to the ingestion backend.
type Report struct {
	ReportID  string    `json:"reportId"`
	CreatedAt time.Time `json:"createdAt"`
	Draft
}

// NewReportID derives a report id from the six low-order decimal digits of
// t in Unix milliseconds.
func NewReportID(t time.Time) string {
	ms := t.UnixMilli()
	if ms < 0 {
		ms = -ms
	}
	return fmt.Sprintf("HR-%06d", ms%1_000_000)
}

// SavedLabel renders how long ago a draft was saved, relative to now.
func SavedLabel(now, savedAt time.Time) string {
	minutes := int(now.Sub(savedAt) / time.Minute)
	switch {
	case minutes < 1:
		return "Saved just now"
	case minutes < 60:
		return fmt.Sprintf("Saved %dm ago", minutes)
	default:
		return fmt.Sprintf("Saved %dh ago", minutes/60)
	}
}
