package connerr

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"google.golang.org/api/googleapi"
)

// Curated user-facing messages.
const (
	MsgDirectory         = "The selected path is a directory. Please select a DuckDB file (.duckdb)"
	MsgFilePermission    = "Permission denied. Please check file permissions or select a different location."
	MsgProjectPermission = "Permission denied. Please check your credentials and project access."
	MsgProjectNotFound   = "Project not found. Please verify your Project ID."
	MsgDatasetNotFound   = "Project or dataset not found. Please verify your Project ID and dataset."
	MsgAuthFailed        = "Authentication failed. Please check your service account key."
	MsgInvalidKeyJSON    = "Invalid service account key JSON format"
	MsgUnsupportedAuth   = "Only service account authentication is supported"
	lockMessageFormat    = "The DuckDB file is locked by another process (PID: %s). Please close any DuckDB CLI sessions or run: kill %s"
	unknownLockHolderPID = "unknown"
)

// Phase tells the classifier which call produced the error; a few messages
// differ between connection testing and query execution.
type Phase int

// Phases.
const (
	PhaseConnect Phase = iota
	PhaseQuery
)

var pidPattern = regexp.MustCompile(`PID (\d+)`)

// LockHolderPID extracts the process id from a DuckDB lock diagnostic.
func LockHolderPID(msg string) (string, bool) {
	m := pidPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// LockMessage builds the lock-contention message for a DuckDB diagnostic.
func LockMessage(diagnostic string) string {
	pid, ok := LockHolderPID(diagnostic)
	if !ok {
		pid = unknownLockHolderPID
	}
	return fmt.Sprintf(lockMessageFormat, pid, pid)
}

// Classify maps a raw engine error to a curated UserFacing error when it
// matches a known condition. Anything else is returned unchanged so the
// original message is never swallowed.
func Classify(engine core.Engine, phase Phase, err error) error {
	if err == nil || IsUserFacing(err) {
		return err
	}

	switch engine {
	case core.EngineDuckDB:
		return classifyDuckDB(err)
	case core.EngineBigQuery:
		return classifyBigQuery(phase, err)
	}
	return err
}

func classifyDuckDB(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "is a directory"):
		return UserFacing(MsgDirectory, err)
	case strings.Contains(msg, "Conflicting lock"):
		return UserFacing(LockMessage(msg), err)
	case strings.Contains(lower, "permission denied"):
		return UserFacing(MsgFilePermission, err)
	}
	return err
}

func classifyBigQuery(phase Phase, err error) error {
	switch HTTPStatus(err) {
	case http.StatusForbidden:
		return UserFacing(MsgProjectPermission, err)
	case http.StatusNotFound:
		if phase == PhaseQuery {
			return UserFacing(MsgDatasetNotFound, err)
		}
		return UserFacing(MsgProjectNotFound, err)
	case http.StatusUnauthorized:
		return UserFacing(MsgAuthFailed, err)
	}
	return err
}

// HTTPStatus returns the HTTP status code carried by a Google API error in
// err's chain, or 0.
func HTTPStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
