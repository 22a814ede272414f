package syncer

import (
	"context"
	"errors"

	"github.com/syntrixbase/intelsync/internal/feed"
	"github.com/syntrixbase/intelsync/internal/marker"
	"github.com/syntrixbase/intelsync/internal/sink"
)

// Failure kinds reported in metrics and logs.
const (
	KindAuthentication     = "authentication"
	KindNoIOCs             = "no_iocs"
	KindAPI                = "api"
	KindUnexpectedResponse = "unexpected_response"
	KindMalformed          = "malformed"
	KindMarkerStorage      = "marker_storage"
	KindSinkStorage        = "sink_storage"
	KindOutOfOrder         = "out_of_order"
	KindCanceled           = "canceled"
	KindOther              = "other"
)

// ErrorKind classifies a run error.
func ErrorKind(err error) string {
	var apiErr *feed.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, feed.ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, feed.ErrNoIOCs):
		return KindNoIOCs
	case errors.As(err, &apiErr):
		return KindAPI
	case feed.IsUnexpectedResponse(err):
		return KindUnexpectedResponse
	case errors.Is(err, feed.ErrMalformedIndicator):
		return KindMalformed
	case errors.Is(err, ErrOutOfOrder):
		return KindOutOfOrder
	case errors.Is(err, marker.ErrStorageUnavailable):
		return KindMarkerStorage
	case errors.Is(err, sink.ErrStorageUnavailable):
		return KindSinkStorage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindOther
	}
}
