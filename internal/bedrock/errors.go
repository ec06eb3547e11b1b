package bedrock

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

// ErrNoTextContent marks a successful Bedrock call whose reply carried no
// usable text block. This is a malformed-reply condition, not a transport
// failure; callers recover from it locally instead of failing the turn.
var ErrNoTextContent = errors.New("no text content in model reply")

// Reason classifies why a Bedrock call failed. Callers only need the broad
// category to decide how to report the outage; the wrapped error keeps the
// detail for logs.
type Reason string

const (
	ReasonAccessDenied  Reason = "access_denied"
	ReasonModelNotFound Reason = "model_not_found"
	ReasonThrottled     Reason = "throttled"
	ReasonService       Reason = "service_error"
	ReasonConnectivity  Reason = "connectivity"
)

// UnavailableError is the single error type surfaced for any Bedrock
// transport failure. It is never produced for malformed model output —
// that is handled by the intent resolver's chat fallback.
type UnavailableError struct {
	Reason Reason
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("bedrock unavailable (%s): %v", e.Reason, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

func classify(err error) *UnavailableError {
	var (
		accessDenied *types.AccessDeniedException
		notFound     *types.ResourceNotFoundException
		throttled    *types.ThrottlingException
		quota        *types.ServiceQuotaExceededException
	)
	switch {
	case errors.As(err, &accessDenied):
		return &UnavailableError{Reason: ReasonAccessDenied, Err: err}
	case errors.As(err, &notFound):
		return &UnavailableError{Reason: ReasonModelNotFound, Err: err}
	case errors.As(err, &throttled), errors.As(err, &quota):
		return &UnavailableError{Reason: ReasonThrottled, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &UnavailableError{Reason: ReasonService, Err: err}
	}

	// Anything else is a connection-level failure: DNS, TLS, timeout,
	// context cancellation.
	return &UnavailableError{Reason: ReasonConnectivity, Err: err}
}
