package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// ErrorCode returns the service error code carried by err, or "" when err did
// not come from an AWS API response.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsConditionalCheckFailed reports whether a write was rejected by its
// condition expression. Some emulators return the generic API error instead
// of the typed exception, so both are matched by code.
func IsConditionalCheckFailed(err error) bool {
	return ErrorCode(err) == "ConditionalCheckFailedException"
}
