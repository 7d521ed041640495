package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/workflow"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 8 * domain.MaxMediaSize
	uploadField   = "files"
)

// ReportForm is the subset of *workflow.Form the API drives.
type ReportForm interface {
	Snapshot() workflow.Snapshot
	Draft() domain.Draft
	SetCategory(c domain.Category) error
	SetHazardType(hazardType string) error
	SetLocation(loc domain.Location) error
	SetSeverity(s domain.Severity) error
	SetDescription(text string) error
	ReplaceFiles(candidates []domain.CandidateFile) ([]domain.MediaFile, error)
	AddFiles(candidates []domain.CandidateFile) ([]domain.MediaFile, error)
	RemoveFile(id string) error
	SetContactInfo(info domain.ContactInfo) error
	SetAnonymous(anonymous bool) error
	DetectLocation(ctx context.Context, locator domain.Locator) (domain.Location, error)
	SaveDraft(ctx context.Context) error
	Submit(ctx context.Context) (domain.Receipt, error)
	Reset(ctx context.Context) error
}

type reportHandler struct {
	form   ReportForm
	logger *slog.Logger
}

func (h *reportHandler) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.form.Snapshot())
}

func (h *reportHandler) hazardTypes(w http.ResponseWriter, r *http.Request) {
	options := domain.HazardTypes(domain.Category(chi.URLParam(r, "category")))
	if options == nil {
		writeError(w, http.StatusNotFound, workflow.ErrUnknownCategory.Error())
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *reportHandler) setCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category domain.Category `json:"hazardCategory"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, h.form.SetCategory(req.Category))
}

func (h *reportHandler) setHazardType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HazardType string `json:"hazardType"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, h.form.SetHazardType(req.HazardType))
}

func (h *reportHandler) setLocation(w http.ResponseWriter, r *http.Request) {
	var loc domain.Location
	if !decodeJSON(w, r, &loc) {
		return
	}
	h.apply(w, h.form.SetLocation(loc))
}

func (h *reportHandler) setSeverity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Severity domain.Severity `json:"severity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, h.form.SetSeverity(req.Severity))
}

func (h *reportHandler) setDescription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, h.form.SetDescription(req.Description))
}

// setFiles replaces the attachment list with client-declared metadata,
// applying the same media filter as uploads.
func (h *reportHandler) setFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []domain.CandidateFile `json:"files"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondFiles(w, req.Files)
}

// uploadFiles streams a multipart upload, sniffing each part's content type
// instead of trusting the declared one. Only metadata is retained.
func (h *reportHandler) uploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart/form-data body")
		return
	}

	var candidates []domain.CandidateFile
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			continue
		}
		candidate, err := inspectPart(part)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		candidates = append(candidates, candidate)
	}

	added, err := h.form.AddFiles(candidates)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeFileResult(w, added, len(candidates)-len(added))
}

func (h *reportHandler) respondFiles(w http.ResponseWriter, candidates []domain.CandidateFile) {
	files, err := h.form.ReplaceFiles(candidates)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeFileResult(w, files, len(candidates)-len(files))
}

func writeFileResult(w http.ResponseWriter, added []domain.MediaFile, rejected int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"added":    added,
		"rejected": rejected,
	})
}

func inspectPart(part *multipart.Part) (domain.CandidateFile, error) {
	cr := &countingReader{r: part}
	mt, err := mimetype.DetectReader(cr)
	if err != nil {
		return domain.CandidateFile{}, err
	}
	if _, err := io.Copy(io.Discard, cr); err != nil {
		return domain.CandidateFile{}, err
	}
	return domain.CandidateFile{
		Name:     part.FileName(),
		Size:     cr.n,
		MIMEType: mt.String(),
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (h *reportHandler) removeFile(w http.ResponseWriter, r *http.Request) {
	h.apply(w, h.form.RemoveFile(chi.URLParam(r, "id")))
}

func (h *reportHandler) setContact(w http.ResponseWriter, r *http.Request) {
	var info domain.ContactInfo
	if !decodeJSON(w, r, &info) {
		return
	}
	h.apply(w, h.form.SetContactInfo(info))
}

func (h *reportHandler) setAnonymous(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAnonymous bool `json:"isAnonymous"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, h.form.SetAnonymous(req.IsAnonymous))
}

// reportedPosition is a position, or a failure, obtained by the client's own
// geolocation provider. It serves as the locator for a single request.
type reportedPosition struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     string   `json:"error"`
}

func (p reportedPosition) CurrentPosition(_ context.Context) (domain.Position, error) {
	if p.Error != "" {
		code, _ := domain.ParsePositionErrorCode(p.Error)
		return domain.Position{}, &domain.PositionError{Code: code}
	}
	if p.Latitude == nil || p.Longitude == nil {
		return domain.Position{}, &domain.PositionError{Code: domain.PositionUnavailable}
	}
	return domain.Position{Latitude: *p.Latitude, Longitude: *p.Longitude}, nil
}

func (h *reportHandler) detectLocation(w http.ResponseWriter, r *http.Request) {
	var pos reportedPosition
	if !decodeJSON(w, r, &pos) {
		return
	}
	loc, err := h.form.DetectLocation(r.Context(), pos)
	if err != nil {
		var perr *domain.PositionError
		if errors.As(err, &perr) {
			writeError(w, http.StatusUnprocessableEntity, domain.LocationMessage(err))
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *reportHandler) saveDraft(w http.ResponseWriter, r *http.Request) {
	h.apply(w, h.form.SaveDraft(r.Context()))
}

func (h *reportHandler) submit(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.form.Submit(r.Context())
	if errors.Is(err, workflow.ErrFormInvalid) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   err.Error(),
			"missing": h.form.Snapshot().Missing,
		})
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *reportHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.apply(w, h.form.Reset(r.Context()))
}

func (h *reportHandler) mapEmbed(w http.ResponseWriter, _ *http.Request) {
	u, ok := domain.MapEmbedURL(h.form.Draft().Location)
	if !ok {
		writeError(w, http.StatusNotFound, "location not set")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

// apply answers a mutation with the resulting snapshot, or the mapped error.
func (h *reportHandler) apply(w http.ResponseWriter, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.form.Snapshot())
}

func (h *reportHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("report request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrDescriptionTooLong),
		errors.Is(err, workflow.ErrUnknownCategory),
		errors.Is(err, workflow.ErrUnknownHazardType),
		errors.Is(err, workflow.ErrUnknownSeverity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrAnonymousContact),
		errors.Is(err, workflow.ErrFormInvalid),
		errors.Is(err, workflow.ErrSubmitInFlight),
		errors.Is(err, workflow.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
