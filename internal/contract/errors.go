package contract

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a repository could not be analyzed.
type ErrorKind string

// All repository error kinds.
const (
	KindInvalidRange    ErrorKind = "InvalidRange"
	KindPathNotFound    ErrorKind = "PathNotFound"
	KindNotARepository  ErrorKind = "NotARepository"
	KindToolUnavailable ErrorKind = "ToolUnavailable"
	KindQueryFailed     ErrorKind = "QueryFailed"
	KindParseError      ErrorKind = "ParseError"
)

// Sentinels usable with errors.Is against any *RepositoryError of the same kind.
var (
	ErrInvalidRange    = errors.New("invalid date range")
	ErrPathNotFound    = errors.New("path not found")
	ErrNotARepository  = errors.New("not a git repository")
	ErrToolUnavailable = errors.New("git is not available")
	ErrQueryFailed     = errors.New("git query failed")
	ErrParseError      = errors.New("unparseable git output")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidRange:    ErrInvalidRange,
	KindPathNotFound:    ErrPathNotFound,
	KindNotARepository:  ErrNotARepository,
	KindToolUnavailable: ErrToolUnavailable,
	KindQueryFailed:     ErrQueryFailed,
	KindParseError:      ErrParseError,
}

// RepositoryError is a typed failure tied to one repository path.
type RepositoryError struct {
	Kind ErrorKind
	Path string
	Err  error
}

// NewRepositoryError builds a RepositoryError, falling back to the kind sentinel when err is nil.
func NewRepositoryError(kind ErrorKind, path string, err error) *RepositoryError {
	if err == nil {
		err = kindSentinels[kind]
	}
	return &RepositoryError{Kind: kind, Path: path, Err: err}
}

func (e *RepositoryError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RepositoryError) Unwrap() error { return e.Err }

// Is matches the sentinel of the same kind.
func (e *RepositoryError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the kind of a RepositoryError anywhere in err's chain, or "" otherwise.
func KindOf(err error) ErrorKind {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Kind
	}
	return ""
}
