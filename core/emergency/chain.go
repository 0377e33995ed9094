package emergency

import (
	"context"
	"errors"
)

// Chain consults classifiers in order. The first positive result wins. It
// fails only when every classifier failed.
type Chain []Classifier

func (c Chain) Classify(ctx context.Context, caseText string) (Result, error) {
	var errs []error
	for _, classifier := range c {
		result, err := classifier.Classify(ctx, caseText)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if result.IsEmergency {
			return result, nil
		}
	}
	if len(c) > 0 && len(errs) == len(c) {
		return Result{}, errors.Join(errs...)
	}
	return Result{}, nil
}
