// Package connerr defines the connector error taxonomy and the classifier
// that maps raw driver errors onto it.
package connerr

import (
	"errors"
	"fmt"
)

// Kind is the taxonomy bucket of an error.
type Kind int

// Error kinds.
const (
	// KindUnknown is an unclassified error passed through unchanged.
	KindUnknown Kind = iota
	// KindConnection means no session could be established. Fatal to the call.
	KindConnection
	// KindCatalogQuery means a catalog query failed or returned nothing. It
	// triggers the next fallback and is fatal only once a chain is exhausted.
	KindCatalogQuery
	// KindPartialExtraction means one object's column description failed.
	// The object is skipped; never fatal.
	KindPartialExtraction
	// KindResourceCleanup means a close/release call failed. Logged only.
	KindResourceCleanup
	// KindUserFacing is a curated condition with a fixed human-readable message.
	KindUserFacing
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindCatalogQuery:
		return "catalog_query"
	case KindPartialExtraction:
		return "partial_extraction"
	case KindResourceCleanup:
		return "resource_cleanup"
	case KindUserFacing:
		return "user_facing"
	default:
		return "unknown"
	}
}

// Error is a classified connector error.
type Error struct {
	Kind Kind
	// Op names the failed operation or resource (e.g. "connect", "main.users").
	Op string
	// Message is the curated user-facing text; empty for non-curated errors.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Connection wraps err as a connection failure. Curated errors and errors
// that are already connection failures are returned unchanged.
func Connection(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) && (ce.Kind == KindUserFacing || ce.Kind == KindConnection) {
		return err
	}
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

// CatalogQuery wraps err as a catalog query failure.
func CatalogQuery(op string, err error) error {
	return &Error{Kind: KindCatalogQuery, Op: op, Err: err}
}

// Partial wraps err as the failure to describe one object.
func Partial(object string, err error) error {
	return &Error{Kind: KindPartialExtraction, Op: object, Err: err}
}

// Cleanup wraps err as a failed release of resource.
func Cleanup(resource string, err error) error {
	return &Error{Kind: KindResourceCleanup, Op: "release " + resource, Err: err}
}

// UserFacing builds a curated error carrying message. cause may be nil.
func UserFacing(message string, cause error) error {
	return &Error{Kind: KindUserFacing, Message: message, Err: cause}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsUserFacing reports whether err carries a curated message anywhere in its chain.
func IsUserFacing(err error) bool {
	for err != nil {
		var ce *Error
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Kind == KindUserFacing {
			return true
		}
		err = ce.Err
	}
	return false
}

// Message returns the text to show a user: the curated message when one is
// present in the chain, otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; {
		var ce *Error
		if !errors.As(e, &ce) {
			break
		}
		if ce.Kind == KindUserFacing && ce.Message != "" {
			return ce.Message
		}
		e = ce.Err
	}
	return err.Error()
}
