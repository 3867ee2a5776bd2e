package validation

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"taskboard/internal/constants"
)

// Accepted task priorities, lowest to highest.
var priorities = []string{"low", "medium", "high", "urgent"}

// DefaultPriority is applied when no priority is supplied.
const DefaultPriority = "medium"

var (
	markupPattern   = regexp.MustCompile(`<[^>]*>`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// FieldResult holds the validity outcome for a single field.
type FieldResult struct {
	Valid  bool
	Errors []string
}

// Result is a FieldResult with a sanitized string value.
type Result struct {
	FieldResult
	Sanitized string
}

// DateResult is a FieldResult with a sanitized date value.
type DateResult struct {
	FieldResult
	Sanitized *time.Time
}

func ok(sanitized string) Result {
	return Result{FieldResult: FieldResult{Valid: true}, Sanitized: sanitized}
}

func fail(errs ...string) Result {
	return Result{FieldResult: FieldResult{Valid: false, Errors: errs}}
}

// Title validates and sanitizes a task title. The title is required,
// trimmed, capped in length and must not contain HTML tags.
func Title(value string) Result {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fail("title is required")
	}
	if len(trimmed) > constants.MaxTitleLength {
		return fail(fmt.Sprintf("title must be at most %d characters", constants.MaxTitleLength))
	}
	if markupPattern.MatchString(trimmed) {
		return fail("title must not contain HTML tags")
	}
	return ok(html.EscapeString(trimmed))
}

// Description validates and sanitizes a task description. The field is
// optional; an empty value passes with an empty sanitized string.
func Description(value string) Result {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ok("")
	}
	if len(trimmed) > constants.MaxDescriptionLength {
		return fail(fmt.Sprintf("description must be at most %d characters", constants.MaxDescriptionLength))
	}
	if markupPattern.MatchString(trimmed) {
		return fail("description must not contain HTML tags")
	}
	return ok(html.EscapeString(trimmed))
}

// Priority validates a task priority case-insensitively against the known
// set. A missing value passes with the default priority.
func Priority(value string) Result {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return ok(DefaultPriority)
	}
	for _, p := range priorities {
		if trimmed == p {
			return ok(p)
		}
	}
	return fail(fmt.Sprintf("priority must be one of: %s", strings.Join(priorities, ", ")))
}

// DueDate validates an optional due date. A nil value passes; a non-nil
// value must not fall before the current day (time of day is ignored).
func DueDate(value *time.Time) DateResult {
	if value == nil {
		return DateResult{FieldResult: FieldResult{Valid: true}}
	}
	today := truncateToDay(time.Now())
	if truncateToDay(*value).Before(today) {
		return DateResult{FieldResult: FieldResult{Valid: false, Errors: []string{"due date cannot be in the past"}}}
	}
	d := *value
	return DateResult{FieldResult: FieldResult{Valid: true}, Sanitized: &d}
}

// Username validates a user handle: non-empty, limited charset, normalized
// to lowercase.
func Username(value string) Result {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fail("username is required")
	}
	if len(trimmed) < constants.MinUsernameLength || len(trimmed) > constants.MaxUsernameLength {
		return fail(fmt.Sprintf("username must be between %d and %d characters",
			constants.MinUsernameLength, constants.MaxUsernameLength))
	}
	if !usernamePattern.MatchString(trimmed) {
		return fail("username may only contain letters, digits, underscores and hyphens")
	}
	return ok(strings.ToLower(trimmed))
}

// Email validates an address against a simple local@domain.tld shape and
// normalizes it to lowercase.
func Email(value string) Result {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fail("email is required")
	}
	if !emailPattern.MatchString(trimmed) {
		return fail("email address is not valid")
	}
	return ok(strings.ToLower(trimmed))
}

// TaskCandidate holds raw task fields submitted for create or update.
// A nil field means the caller did not supply it.
type TaskCandidate struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
}

// SanitizedTask is the projection produced by a successful TaskFields run.
type SanitizedTask struct {
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
}

// TaskFieldsResult aggregates per-field outcomes for a candidate.
type TaskFieldsResult struct {
	Valid     bool
	Errors    []string
	Sanitized SanitizedTask
	Fields    map[string]FieldResult
}

// TaskFields validates only the fields present on the candidate, so the
// same call serves full creates and partial updates. All field errors are
// collected into one flat list prefixed with the field name. Absent
// optional fields receive their defaults in the sanitized projection.
func TaskFields(candidate TaskCandidate) TaskFieldsResult {
	result := TaskFieldsResult{
		Valid: true,
		Sanitized: SanitizedTask{
			Priority: DefaultPriority,
		},
		Fields: make(map[string]FieldResult),
	}

	collect := func(field string, fr FieldResult) {
		result.Fields[field] = fr
		if !fr.Valid {
			result.Valid = false
			for _, e := range fr.Errors {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", field, e))
			}
		}
	}

	if candidate.Title != nil {
		r := Title(*candidate.Title)
		collect("title", r.FieldResult)
		if r.Valid {
			result.Sanitized.Title = r.Sanitized
		}
	}
	if candidate.Description != nil {
		r := Description(*candidate.Description)
		collect("description", r.FieldResult)
		if r.Valid {
			result.Sanitized.Description = r.Sanitized
		}
	}
	if candidate.Priority != nil {
		r := Priority(*candidate.Priority)
		collect("priority", r.FieldResult)
		if r.Valid {
			result.Sanitized.Priority = r.Sanitized
		}
	}
	if candidate.DueDate != nil {
		r := DueDate(candidate.DueDate)
		collect("due_date", r.FieldResult)
		if r.Valid {
			result.Sanitized.DueDate = r.Sanitized
		}
	}

	return result
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
