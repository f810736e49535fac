package api

import (
	"errors"
	"fmt"
)

var (
	ErrSubmission    = errors.New("translation submission failed")
	ErrHistoryLoad   = errors.New("history load failed")
	ErrHistoryDelete = errors.New("history delete failed")
	ErrSettings      = errors.New("settings request failed")
)

// requestError carries what went wrong with one HTTP exchange. Status is zero
// when the request never got a response.
type requestError struct {
	Status int
	Body   string
	Err    error
}

func (e requestError) describe() string {
	switch {
	case e.Err != nil && e.Body != "":
		return fmt.Sprintf("%v (%s)", e.Err, e.Body)
	case e.Err != nil:
		return e.Err.Error()
	case e.Body != "":
		return fmt.Sprintf("status %d (%s)", e.Status, e.Body)
	default:
		return fmt.Sprintf("status %d", e.Status)
	}
}

// SubmissionError is returned when the split/translate request fails.
type SubmissionError struct{ requestError }

func (e *SubmissionError) Error() string { return "submit translation: " + e.describe() }
func (e *SubmissionError) Unwrap() error { return e.Err }
func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

// HistoryLoadError is returned when listing or fetching history fails.
type HistoryLoadError struct {
	requestError
	ID string
}

func (e *HistoryLoadError) Error() string {
	if e.ID == "" {
		return "list documents: " + e.describe()
	}
	return fmt.Sprintf("load document %s: %s", e.ID, e.describe())
}
func (e *HistoryLoadError) Unwrap() error { return e.Err }
func (e *HistoryLoadError) Is(target error) bool { return target == ErrHistoryLoad }

// HistoryDeleteError is returned when a history entry cannot be deleted.
type HistoryDeleteError struct {
	requestError
	ID string
}

func (e *HistoryDeleteError) Error() string {
	return fmt.Sprintf("delete document %s: %s", e.ID, e.describe())
}
func (e *HistoryDeleteError) Unwrap() error { return e.Err }
func (e *HistoryDeleteError) Is(target error) bool { return target == ErrHistoryDelete }

// SettingsError is returned when settings cannot be fetched, validated or saved.
type SettingsError struct {
	requestError
	Op string
}

func (e *SettingsError) Error() string { return fmt.Sprintf("%s settings: %s", e.Op, e.describe()) }
func (e *SettingsError) Unwrap() error { return e.Err }
func (e *SettingsError) Is(target error) bool { return target == ErrSettings }
