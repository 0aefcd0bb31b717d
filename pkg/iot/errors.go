package iot

import (
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/aws/smithy-go"

	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/metrics"
)

// IsBackendError reports whether the service itself rejected a call, as opposed
// to a local or transport failure.
func IsBackendError(err error) bool {
	var apiErr smithy.APIError
	return stderrors.As(err, &apiErr)
}

// IsNotFound reports whether err says the requested resource does not exist
func IsNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	if stderrors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}

// ErrorCode returns the service error code, or "" for non-backend errors
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// WrapBackend wraps err as a backend or internal error depending on its origin
func WrapBackend(err error, message string) error {
	if err == nil {
		return nil
	}
	if IsBackendError(err) {
		return errors.Wrap(err, errors.ErrorTypeBackend, message).
			WithDetail("code", ErrorCode(err))
	}
	return errors.Wrap(err, errors.ErrorTypeInternal, message)
}

// ClassifyStatus maps a call error to a metrics status label
func ClassifyStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case IsBackendError(err):
		return metrics.StatusBackendError
	default:
		return metrics.StatusError
	}
}
