package domain

import (
	"errors"
	"time"
)

// Description length bounds, counted in characters.
const (
	MinDescriptionLength = 50
	MaxDescriptionLength = 1000
)

// ErrCorruptDraft is returned by draft stores when a persisted draft cannot be decoded.
var ErrCorruptDraft = errors.New("corrupt draft")

// Category groups hazard types.
type Category string

const (
	CategoryOcean Category = "ocean"
	CategoryLocal Category = "local"
)

// Valid reports whether c is a known category. The empty category is not valid.
func (c Category) Valid() bool {
	return c == CategoryOcean || c == CategoryLocal
}

// Severity is the reporter's own assessment of risk.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Location holds coordinates as entered or detected. Coordinates are kept as
// decimal strings so manual input round-trips unchanged.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Address   string `json:"address"`
}

// ContactInfo identifies a non-anonymous reporter.
type ContactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Complete reports whether every contact field is non-empty.
func (c ContactInfo) Complete() bool {
	return c.Name != "" && c.Phone != "" && c.Email != ""
}

// MediaFile is a photo or video attached to a draft. Handle and Preview are
// opaque references to the stored binary and its preview rendition.
type MediaFile struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"type"`
	Preview  string `json:"preview,omitempty"`
}

// Draft is an in-progress hazard report.
type Draft struct {
	HazardCategory Category    `json:"hazardCategory"`
	HazardType     string      `json:"hazardType"`
	Location       Location    `json:"location"`
	Severity       Severity    `json:"severity"`
	Description    string      `json:"description"`
	Files          []MediaFile `json:"files"`
	ContactInfo    ContactInfo `json:"contactInfo"`
	IsAnonymous    bool        `json:"isAnonymous"`
}

// NewDraft returns an empty draft.
func NewDraft() Draft {
	return Draft{Files: []MediaFile{}}
}

// Clone returns a copy of d that shares no mutable state with it.
func (d Draft) Clone() Draft {
	if d.Files != nil {
		files := make([]MediaFile, len(d.Files))
		copy(files, d.Files)
		d.Files = files
	}
	return d
}

// HasContent reports whether the draft holds enough input to be worth
// autosaving: a hazard type or any description text.
func (d Draft) HasContent() bool {
	return d.HazardType != "" || d.Description != ""
}

// SavedDraft is a draft together with the time it was persisted.
type SavedDraft struct {
	Draft   Draft
	SavedAt time.Time
}
