package domain

import "fmt"

// Status is the lifecycle state of a CV document.
//
// Transitions are monotonic within one processing run:
//
//	uploaded → processing → processed
//	processing → error
//
// Reprocess re-enters processing from any terminal state. StatusFormatted
// is legacy data seeded by earlier imports and is treated as a synonym of
// StatusProcessed everywhere a status is branched on.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFormatted  Status = "formatted"
	StatusError      Status = "error"
	StatusFailed     Status = "failed"
)

// ParseStatus validates a raw status string
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusFormatted, StatusError, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown document status: %q", s)
}

// IsProcessed reports whether the document holds a final structured record.
// StatusFormatted counts as processed.
func (s Status) IsProcessed() bool {
	return s == StatusProcessed || s == StatusFormatted
}

// IsFailure reports whether the document ended a run in a failure state
func (s Status) IsFailure() bool {
	return s == StatusError || s == StatusFailed
}

// IsTerminal reports whether the status ends a processing run
func (s Status) IsTerminal() bool {
	return s.IsProcessed() || s.IsFailure()
}

// DisplayLabel maps the state to the label shown in the UI
func (s Status) DisplayLabel() string {
	switch s {
	case StatusUploaded:
		return "Uploaded"
	case StatusProcessing:
		return "Processing"
	case StatusProcessed, StatusFormatted:
		return "Processed"
	case StatusError, StatusFailed:
		return "Failed"
	}
	return "Unknown"
}

// CanTransition reports whether moving from s to next is a legal
// state-machine transition. A processed or failed document may only
// re-enter processing (reprocess); it never silently reverts to uploaded.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusUploaded:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessed || next == StatusError || next == StatusFailed
	case StatusProcessed, StatusFormatted, StatusError, StatusFailed:
		return next == StatusProcessing
	}
	return false
}
