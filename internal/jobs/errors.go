package jobs

import (
	"errors"

	"github.com/riverqueue/river"

	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/resilience"
)

// classify maps the error taxonomy onto queue behavior. Transient errors
// propagate as-is so the queue retries with backoff; permanent errors cancel
// the job so it is discarded without burning the remaining attempts, leaving
// the business status unchanged for a later pass.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsTransient(err) {
		return err
	}
	if resilience.IsPermanent(err) || model.IsParseError(err) || errors.Is(err, model.ErrNotFound) {
		return river.JobCancel(err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return river.JobCancel(err)
	}
	return err
}
