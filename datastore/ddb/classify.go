/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/internal/retry"
)

// isPermanentCode reports error codes DynamoDB answers with for requests that will
// never succeed as sent.
func isPermanentCode(code string) bool {
	switch code {
	case "ValidationException", "SerializationException", "AccessDeniedException",
		"UnrecognizedClientException", "InvalidSignatureException", "IncompleteSignatureException",
		"MissingAuthenticationToken", "MissingAuthenticationTokenException",
		"ItemCollectionSizeLimitExceededException":
		return true
	}
	return false
}

// classify wraps err with the operation name and marks it permanent when retrying
// cannot help. Throttling, 5xx and network errors are left retryable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		if isPermanentCode(apiErr.ErrorCode()) {
			return retry.Permanent(wrapped)
		}
		if apiErr.ErrorFault() == smithy.FaultClient && !isThrottle(apiErr.ErrorCode()) && !isNotFound(err) {
			return retry.Permanent(wrapped)
		}
	}
	return wrapped
}

func isThrottle(code string) bool {
	switch code {
	case "ProvisionedThroughputExceededException", "ThrottlingException",
		"RequestLimitExceeded", "LimitExceededException", "TransactionConflictException":
		return true
	}
	return false
}

func isNotFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	return stderrors.As(err, &rnf)
}

func isInUse(err error) bool {
	var riu *types.ResourceInUseException
	return stderrors.As(err, &riu)
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return stderrors.As(err, &cfe)
}

// handleError maps a failed lease condition onto the invalid handle sentinel.
func handleError(op string, err error) error {
	if isConditionFailed(err) {
		return errors.ErrInvalidHandle
	}
	return classify(op, err)
}
