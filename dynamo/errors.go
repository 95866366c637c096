package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/store"
)

// mapError translates an SDK error into the store's error contract.
func mapError(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s %s", store.ErrConditionFailed, op, entity)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ConditionalCheckFailedException":
			return fmt.Errorf("%w: %s %s", store.ErrConditionFailed, op, entity)
		case "ValidationException":
			// Merging into a missing or non-map parent.
			if strings.Contains(ae.ErrorMessage(), "document path") {
				return fmt.Errorf("%w: %s %s: %s", patch.ErrInvalidPath, op, entity, ae.ErrorMessage())
			}
			return fmt.Errorf("syllabus: %s %s: %w", op, entity, err)
		}
	}
	return &store.TransportError{Op: op, Entity: entity, Err: err}
}
