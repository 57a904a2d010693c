package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	apperrors "catalog-backend/pkg/errors"
)

const serviceName = "catalog-store"

// classifyError maps a DynamoDB failure onto the AppError taxonomy while
// keeping the original error as the cause.
func classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if apperrors.GetAppError(err) != nil {
		return err
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ProvisionedThroughputExceededException",
			"ThrottlingException",
			"RequestLimitExceeded",
			"InternalServerError",
			"ServiceUnavailable":
			return apperrors.NewUnavailableError(serviceName).
				WithCause(err).
				WithDetail("operation", operation)
		case "ResourceNotFoundException":
			return apperrors.NewUnavailableError(serviceName).
				WithCause(err).
				WithDetail("operation", operation).
				WithDetail("reason", "table not found")
		}
	}
	return apperrors.NewDatabaseError(operation, err)
}

func isConditionFailure(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}
