package matcher

import (
	"math"

	"order-reconciliation-service/internal/models"
	"order-reconciliation-service/pkg/logger"
)

// InternationalDetector matches storefront orders against supplier orders
// shipped through a freight-forwarding warehouse. The forwarder replaces the
// destination address, so the standard address scorers are useless; instead
// the detector compares the buyer name against the cleaned recipient name
// and the product titles against each other.
type InternationalDetector struct {
	config InternationalConfig
	logger logger.Logger
}

// NewInternationalDetector creates a detector with the given thresholds.
func NewInternationalDetector(config InternationalConfig) *InternationalDetector {
	return &InternationalDetector{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("international"),
	}
}

// internationalScoreCap keeps forwarded matches below a perfect score; the
// buyer name on a forwarder label is weaker evidence than a full address.
const internationalScoreCap = 95

// Score evaluates a storefront/supplier pair for international routing.
// Returns nil when the supplier order is not forwarded or does not qualify.
func (d *InternationalDetector) Score(storefront *models.StorefrontOrder, supplier *models.SupplierOrder) *MatchResult {
	fwd, ok := supplier.Address.(*models.ForwardingAddress)
	if !ok {
		return nil
	}

	valid, status, dayDiff := ValidateDates(storefront.SaleDate, supplier.OrderDate)
	if !valid {
		return nil
	}

	nameScore := NameMatchScore(storefront.BuyerName, fwd.CleanName)
	if float64(nameScore) < d.config.NameThreshold {
		return nil
	}

	productScore := TitleSimilarity(storefront.Title, supplier.FirstProduct().Title)
	if float64(productScore) < d.config.ProductThreshold {
		return nil
	}

	score := math.Min(internationalScoreCap, 0.7*float64(nameScore)+0.3*float64(productScore))

	d.logger.WithFields(logger.Fields{
		"storefront_order": storefront.ID,
		"supplier_order":   supplier.ID,
		"carrier":          fwd.CarrierCode,
		"name_score":       nameScore,
		"product_score":    productScore,
		"score":            score,
	}).Debug("International routing match")

	return &MatchResult{
		Supplier:        supplier,
		Score:           score,
		Method:          models.MatchMethodInternational,
		DateStatus:      status,
		DateDiffDays:    dayDiff,
		IsInternational: true,
		NameConfidence:  nameScore,
		FieldScores: map[string]int{
			"name":  nameScore,
			"title": productScore,
		},
	}
}

// NameMatchScore compares two person names, tolerating token reordering and
// one name embedded in a longer one.
func NameMatchScore(a, b string) int {
	best := Ratio(a, b)
	if score := PartialRatio(a, b); score > best {
		best = score
	}
	if score := TokenSetRatio(a, b); score > best {
		best = score
	}
	return best
}
