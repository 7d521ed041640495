package domain

import "strings"

// MaxMediaSize is the per-file upload cap (50 MiB).
const MaxMediaSize int64 = 50 * 1024 * 1024

// CandidateFile describes a file offered by the picker or an upload, before filtering.
type CandidateFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"type"`
}

// IsAcceptedMedia reports whether a file of the given type and size may be attached.
func IsAcceptedMedia(mimeType string, size int64) bool {
	isMedia := strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
	return isMedia && size >= 0 && size <= MaxMediaSize
}

// FilterMedia keeps image and video files within the size cap and assigns each
// a fresh id from newID. Rejected files are dropped without error; the count
// of dropped files is returned so callers can record it.
func FilterMedia(candidates []CandidateFile, newID func() string) ([]MediaFile, int) {
	accepted := make([]MediaFile, 0, len(candidates))
	for _, c := range candidates {
		if !IsAcceptedMedia(c.MIMEType, c.Size) {
			continue
		}
		id := newID()
		f := MediaFile{
			ID:       id,
			Handle:   "media/" + id,
			Name:     c.Name,
			Size:     c.Size,
			MIMEType: c.MIMEType,
		}
		// Images preview themselves; videos have no preview rendition.
		if strings.HasPrefix(c.MIMEType, "image/") {
			f.Preview = f.Handle
		}
		accepted = append(accepted, f)
	}
	return accepted, len(candidates) - len(accepted)
}
