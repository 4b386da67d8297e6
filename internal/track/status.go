package track

import "fmt"

// Status is the lifecycle position of a track's metadata trust level.
type Status string

// Metadata statuses, ordered roughly by increasing trust.
const (
	StatusDirty           Status = "dirty"
	StatusCleanedLocal    Status = "cleaned_local"
	StatusEnriched        Status = "enriched"
	StatusPartialVerified Status = "partial_verified"
	StatusVerified        Status = "verified"
	StatusFailed          Status = "failed"
	StatusAPINotFound     Status = "api_not_found"
)

// AllStatuses returns every valid status in display order.
func AllStatuses() []Status {
	return []Status{
		StatusDirty,
		StatusCleanedLocal,
		StatusEnriched,
		StatusPartialVerified,
		StatusVerified,
		StatusFailed,
		StatusAPINotFound,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDirty, StatusCleanedLocal, StatusEnriched,
		StatusPartialVerified, StatusVerified, StatusFailed, StatusAPINotFound:
		return true
	}
	return false
}

// Terminal reports whether no further enrichment is warranted.
// Verified tracks are done; everything else can still improve.
func (s Status) Terminal() bool {
	return s == StatusVerified
}

// ParseStatus converts a stored string to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown metadata status: %q", raw)
	}
	return s, nil
}

// DisplayName returns a human-readable name for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusDirty:
		return "Dirty"
	case StatusCleanedLocal:
		return "Cleaned (local)"
	case StatusEnriched:
		return "Enriched"
	case StatusPartialVerified:
		return "Partially Verified"
	case StatusVerified:
		return "Verified"
	case StatusFailed:
		return "Failed"
	case StatusAPINotFound:
		return "Not Found Upstream"
	default:
		return string(s)
	}
}
