package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure. Every error that crosses a package
// boundary in this service is an *Error with one of these kinds.
type Kind int

const (
	// Internal is the zero value; anything unclassified reports as a 500.
	Internal Kind = iota
	// InvalidArgument means the request payload is malformed or incomplete.
	InvalidArgument
	// Unauthorized means the caller identity is missing or invalid.
	Unauthorized
	// ConfigError means a server-side secret is missing or inconsistent.
	ConfigError
	// UpstreamError means the payment platform returned a non-2xx response.
	UpstreamError
	// SettlementError means the ledger rejected the transaction or returned
	// no usable transaction id.
	SettlementError
	// Conflict means a competing in-flight A2U payment exists for another user.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case Unauthorized:
		return "unauthorized"
	case ConfigError:
		return "config_error"
	case UpstreamError:
		return "upstream_error"
	case SettlementError:
		return "settlement_error"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the gateway's uniform error shape. UpstreamStatus and Data are only
// set for UpstreamError, where they carry the platform's HTTP status and parsed
// body for diagnostics.
type Error struct {
	Kind           Kind
	Message        string
	UpstreamStatus int
	Data           any
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus maps the kind to the status returned to the caller. Upstream
// failures surface as 400 regardless of the upstream's own status, which is
// carried separately in the response body.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case InvalidArgument, UpstreamError:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	case ConfigError, SettlementError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Upstream builds an UpstreamError carrying the platform's status and body.
func Upstream(msg string, status int, body any) *Error {
	return &Error{Kind: UpstreamError, Message: msg, UpstreamStatus: status, Data: body}
}

// From extracts the typed error, wrapping anything foreign as Internal so the
// handler layer always has a kind and a status to work with.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: Internal, Message: err.Error()}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
