package matcher

import (
	"time"

	"order-reconciliation-service/internal/models"
)

// ValidateDates checks the date ordering constraint between a storefront
// sale and its supplier fulfillment: the supplier order must not precede the
// sale. Orders with an unparsable date on either side pass with the
// date_skip status rather than failing the candidate; the status is carried
// on the match result so skipped validations stay auditable.
func ValidateDates(saleDate, supplierDate *time.Time) (valid bool, status string, dayDiff int) {
	if saleDate == nil || supplierDate == nil {
		return true, models.DateStatusSkip, 0
	}

	diff := models.DaysBetween(*saleDate, *supplierDate)
	return diff >= 0, models.DateStatusValid, diff
}
