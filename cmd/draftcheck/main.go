// Command draftcheck inspects a persisted hazard report draft and reports,
// condition by condition, whether it could be submitted. It exits 1 when the
// draft is missing, unreadable, or fails any condition.
//
// Usage:
//
//	go run ./cmd/draftcheck -file draft.json
//	go run ./cmd/draftcheck -redis-url redis://localhost:6379/0
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	redisadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/redis"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

const (
	defaultDraftKey     = "hazard-report-draft"
	defaultTimestampKey = "hazard-report-draft-timestamp"
)

var requirementLabels = map[domain.Requirement]string{
	domain.RequireCategory:    "hazard category selected",
	domain.RequireHazardType:  "hazard type selected",
	domain.RequireLatitude:    "latitude present",
	domain.RequireLongitude:   "longitude present",
	domain.RequireSeverity:    "severity selected",
	domain.RequireDescription: fmt.Sprintf("description at least %d characters", domain.MinDescriptionLength),
	domain.RequireContact:     "anonymous, or name, phone and email present",
}

// phase tracks pass/fail for a group of checks.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "path to a draft JSON body")
	redisURL := flag.String("redis-url", "", "Redis URL holding the saved draft")
	draftKey := flag.String("draft-key", defaultDraftKey, "Redis key of the draft body")
	timestampKey := flag.String("timestamp-key", defaultTimestampKey, "Redis key of the save timestamp")
	flag.Parse()

	if (*file == "") == (*redisURL == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -redis-url is required")
		flag.Usage()
		os.Exit(2)
	}

	var (
		saved domain.SavedDraft
		err   error
	)
	if *file != "" {
		saved, err = loadFile(*file)
	} else {
		saved, err = loadRedis(*redisURL, *draftKey, *timestampKey)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, saved, time.Now()))
}

func loadFile(path string) (domain.SavedDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.SavedDraft{}, err
	}
	draft, err := domain.DecodeDraft(data)
	if err != nil {
		return domain.SavedDraft{}, err
	}
	return domain.SavedDraft{Draft: draft}, nil
}

func loadRedis(url, draftKey, timestampKey string) (domain.SavedDraft, error) {
	store, err := redisadapter.NewStore(url, draftKey, timestampKey)
	if err != nil {
		return domain.SavedDraft{}, err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	saved, ok, err := store.Load(ctx)
	if err != nil {
		return domain.SavedDraft{}, err
	}
	if !ok {
		return domain.SavedDraft{}, fmt.Errorf("no draft stored under %q", draftKey)
	}
	return saved, nil
}

// run prints the report for saved and returns the process exit code.
func run(w io.Writer, saved domain.SavedDraft, now time.Time) int {
	fmt.Fprintln(w, "=== Hazard Report Draft Check ===")
	fmt.Fprintln(w)

	phases := []*phase{
		checkSubmission(saved.Draft),
		checkValues(saved.Draft),
	}

	d := saved.Draft
	fmt.Fprintf(w, "  category=%q type=%q severity=%q files=%d anonymous=%t\n",
		d.HazardCategory, d.HazardType, d.Severity, len(d.Files), d.IsAnonymous)
	fmt.Fprintf(w, "  description: %d characters\n", domain.DescriptionLength(d.Description))
	if !saved.SavedAt.IsZero() {
		fmt.Fprintf(w, "  %s (%s)\n", domain.SavedLabel(now, saved.SavedAt), domain.FormatSavedAt(saved.SavedAt))
	}
	fmt.Fprintln(w)

	missing := map[domain.Requirement]bool{}
	for _, r := range domain.Validate(d) {
		missing[r] = true
	}
	for _, r := range domain.Requirements {
		status := "ok"
		if missing[r] {
			status = "MISSING"
		}
		fmt.Fprintf(w, "  %-48s %s\n", requirementLabels[r], status)
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-48s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nDraft is ready to submit.")
		return 0
	}
	fmt.Fprintln(w, "\nDraft is NOT ready to submit.")
	return 1
}

// checkSubmission applies the submission predicate.
func checkSubmission(d domain.Draft) *phase {
	p := &phase{name: "Submission requirements"}
	for _, r := range domain.Validate(d) {
		p.errorf("%s: %s", r, requirementLabels[r])
	}
	return p
}

// checkValues flags stored values the API would have rejected. These do not
// affect the submission predicate but point to a hand-edited or stale draft.
func checkValues(d domain.Draft) *phase {
	p := &phase{name: "Stored values"}
	if d.HazardCategory != "" && !d.HazardCategory.Valid() {
		p.errorf("hazardCategory %q is not a known category", d.HazardCategory)
	}
	if d.HazardType != "" && !domain.IsHazardType(d.HazardCategory, d.HazardType) {
		p.errorf("hazardType %q is not offered for category %q", d.HazardType, d.HazardCategory)
	}
	if d.Severity != "" && !d.Severity.Valid() {
		p.errorf("severity %q is not a known level", d.Severity)
	}
	if n := domain.DescriptionLength(d.Description); n > domain.MaxDescriptionLength {
		p.errorf("description is %d characters, over the %d limit", n, domain.MaxDescriptionLength)
	}
	if d.IsAnonymous && d.ContactInfo != (domain.ContactInfo{}) {
		p.errorf("anonymous draft still carries contact details")
	}
	for i, f := range d.Files {
		if !domain.IsAcceptedMedia(f.MIMEType, f.Size) {
			p.errorf("file %d (%s): type %q size %d would not be accepted", i, f.Name, f.MIMEType, f.Size)
		}
	}
	return p
}
