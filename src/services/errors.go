package services

import "errors"

var (
	// ErrValidation marks structural validation failures rejected before
	// any persistence happens.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidScheduleExpression marks a malformed cron expression,
	// also rejected before persistence.
	ErrInvalidScheduleExpression = errors.New("invalid schedule expression")

	// ErrUnsupportedSectionType and ErrUnsupportedQuery are configuration
	// errors; templates created through validated CRUD never trigger them.
	ErrUnsupportedSectionType = errors.New("unsupported section type")
	ErrUnsupportedQuery       = errors.New("unsupported query identifier")

	// ErrDataSource wraps a failed read against the backing data store.
	// Not retried within a single resolution.
	ErrDataSource = errors.New("data store read failed")

	// ErrDelivery wraps an export or mail failure during execution.
	ErrDelivery = errors.New("report delivery failed")
)
