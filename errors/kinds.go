package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ManualInterventionError is raised when entity resolution finds more than
// one candidate entity for the same core-id value, or when two core
// properties disagree about which entity the incoming data describes. The
// library never guesses; a human has to decide.
type ManualInterventionError struct {
	// Candidates maps each offending core property id to the entity ids
	// its value matched.
	Candidates map[string][]string
}

func (e *ManualInterventionError) Error() string {
	props := make([]string, 0, len(e.Candidates))
	for pid := range e.Candidates {
		props = append(props, pid)
	}
	sort.Strings(props)
	parts := make([]string, 0, len(props))
	for _, pid := range props {
		parts = append(parts, fmt.Sprintf("%s -> [%s]", pid, strings.Join(e.Candidates[pid], ", ")))
	}
	return "manual intervention required: conflicting entity candidates: " + strings.Join(parts, "; ")
}

// CorePropIntegrityError is raised when a resolved entity's core-id
// statements agree with the incoming data below the caller's threshold.
type CorePropIntegrityError struct {
	EntityID  string
	Matched   map[string][]string // property id -> values that matched
	Unmatched map[string][]string // property id -> values that did not
	Ratio     float64
	Threshold float64
}

func (e *CorePropIntegrityError) Error() string {
	return fmt.Sprintf("core-property integrity check failed for %s: match ratio %.2f below threshold %.2f (matched %d properties, unmatched %d)",
		e.EntityID, e.Ratio, e.Threshold, len(e.Matched), len(e.Unmatched))
}

// LabelDescriptionConflictError is returned when the server refuses a write
// because another entity already carries the same (label, description) pair
// in some language. Both fields are extracted from the server's error shape.
type LabelDescriptionConflictError struct {
	Language      string
	ConflictingID string
	Message       string
}

func (e *LabelDescriptionConflictError) Error() string {
	return fmt.Sprintf("label/description conflict with %s in language %q: %s", e.ConflictingID, e.Language, e.Message)
}

// MergeError is returned when wbmergeitems reports failure.
type MergeError struct {
	From string
	To   string
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge of %s into %s failed: %v", e.From, e.To, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// SearchError is returned when wbsearchentities reports success != 1.
type SearchError struct {
	Query string
	Body  map[string]any
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("entity search for %q did not succeed", e.Query)
}

// APIError carries a server-reported error document that the transport
// could not recover from.
type APIError struct {
	Code string
	Info string
	Body map[string]any
}

func (e *APIError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
	}
	return "api error " + e.Code
}

// TransportError marks a terminal transport failure: an HTTP 4xx other than
// 429, a non-recoverable JSON decode failure, or exhausted retries.
type TransportError struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport failure (HTTP %d after %d attempts): %v", e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("transport failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
