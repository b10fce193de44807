package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	// ErrVersionConflict reports applied versions that disagree with the
	// embedded files, e.g. a gap or an applied version without a file.
	ErrVersionConflict  = errors.New("migration version conflict")
	ErrInvalidVersion   = errors.New("invalid migration version")
	ErrDuplicateVersion = errors.New("duplicate migration version")
)

// Stage names the part of the migration run that failed.
type Stage string

const (
	StageFile     Stage = "file"
	StageDatabase Stage = "database"
	StageApply    Stage = "apply"
)

// Error carries the migration version and location of a failure. Location
// is a file path for file and apply failures and the statement for database
// failures.
type Error struct {
	Stage     Stage
	Version   string
	Location  string
	Operation string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Version != "":
		return fmt.Sprintf("migration %s: %s %s: %v", e.Version, e.Stage, e.Operation, e.Err)
	case e.Stage == StageFile:
		return fmt.Sprintf("migration %s %s of %s: %v", e.Stage, e.Operation, e.Location, e.Err)
	}
	return fmt.Sprintf("migration %s %s: %v", e.Stage, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewMigrationError reports a failure while applying the file at filePath.
func NewMigrationError(version, filePath, operation string, err error) *Error {
	return &Error{Stage: StageApply, Version: version, Location: filePath, Operation: operation, Err: err}
}

// NewFileSystemError reports a failure while reading migration files.
func NewFileSystemError(path, operation string, err error) *Error {
	return &Error{Stage: StageFile, Location: path, Operation: operation, Err: err}
}

// NewDatabaseError reports a failure of query during operation.
func NewDatabaseError(version, query, operation string, err error) *Error {
	return &Error{Stage: StageDatabase, Version: version, Location: query, Operation: operation, Err: err}
}
