package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Errors surfaced by FileService. Every operation failure is an *OpError
// whose Kind is one of the operation errors; errors.Is matches the kind and
// the classified cause (ErrConnectivity / ErrAuthorization) alike.
var (
	ErrConnectivity  = errors.New("object store unreachable")
	ErrAuthorization = errors.New("object store rejected the credentials")
	ErrUpload        = errors.New("upload failed")
	ErrDelete        = errors.New("delete failed")
	ErrRename        = errors.New("rename failed")

	ErrInvalidName          = errors.New("invalid file name")
	ErrBusy                 = errors.New("another operation is in progress")
	ErrConfirmationRequired = errors.New("delete requires confirmation")
)

// Rename phases
const (
	PhaseCopy   = "copy"
	PhaseDelete = "delete"
)

// OpError describes a failed list/upload/delete/rename.
type OpError struct {
	Op    string
	Key   string
	Kind  error
	Phase string
	// Duplicate is set when a rename copied the object but could not delete
	// the original, leaving both keys in the bucket.
	Duplicate bool
	Err       error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Key != "" {
		b.WriteString(" ")
		b.WriteString(e.Key)
	}
	if e.Phase != "" {
		b.WriteString(" (")
		b.WriteString(e.Phase)
		b.WriteString(" phase)")
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool { return target == e.Kind }

// authErrorCodes are S3 error codes that mean the credentials are wrong or lack access.
var authErrorCodes = map[string]bool{
	"AccessDenied":          true,
	"AllAccessDisabled":     true,
	"AccountProblem":        true,
	"ExpiredToken":          true,
	"InvalidAccessKeyId":    true,
	"InvalidToken":          true,
	"SignatureDoesNotMatch": true,
}

// classify wraps err with ErrAuthorization or ErrConnectivity when the store
// error code, HTTP status or transport failure says so. Other errors are
// returned unchanged.
func classify(err error, code string, status int) error {
	if err == nil {
		return nil
	}
	if authErrorCodes[code] || status == 401 || status == 403 {
		return fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	if isTransportError(err) {
		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	return err
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// listErrorKind picks the kind reported for a failed listing. Unclassified
// failures count as connectivity problems.
func listErrorKind(err error) error {
	if errors.Is(err, ErrAuthorization) {
		return ErrAuthorization
	}
	return ErrConnectivity
}
