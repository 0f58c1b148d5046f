package matcher

import (
	"context"
	"fmt"
	"sync"

	"order-reconciliation-service/internal/models"
	"order-reconciliation-service/pkg/logger"
)

// MatchingEngine scores storefront/supplier order pairs. International
// routing is evaluated first; a qualifying forwarded match supersedes the
// standard address scoring.
type MatchingEngine struct {
	Config  *MatchingConfig
	weights FieldWeights
	intl    *InternationalDetector
	logger  logger.Logger
}

// MatchResult represents one scored storefront/supplier pairing.
type MatchResult struct {
	Supplier        *models.SupplierOrder
	Score           float64
	Method          string
	DateStatus      string
	DateDiffDays    int
	IsInternational bool
	NameConfidence  int
	FieldScores     map[string]int
	Reasons         []string
}

// Match pairs a storefront order with its selected supplier result.
type Match struct {
	Storefront *models.StorefrontOrder
	Result     *MatchResult
}

// NewMatchingEngine creates a matching engine with the specified
// configuration. An invalid threshold is an error; imbalanced field weights
// are logged and replaced with the defaults.
func NewMatchingEngine(config *MatchingConfig) (*MatchingEngine, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}

	log := logger.GetGlobalLogger().WithComponent("matcher")

	weights := config.Weights
	if err := weights.Validate(); err != nil {
		log.WithFields(logger.Fields{
			"weights_sum": weights.Sum(),
		}).Warnf("Invalid field weights (%v), falling back to defaults", err)
		weights = DefaultMatchingConfig().Weights
	}

	return &MatchingEngine{
		Config:  config,
		weights: weights,
		intl:    NewInternationalDetector(config.International),
		logger:  log,
	}, nil
}

// EffectiveWeights returns the weights actually used for scoring.
func (me *MatchingEngine) EffectiveWeights() FieldWeights {
	return me.weights
}

// ScoreOrder scores a single storefront/supplier pair. Returns nil when the
// pair is not a candidate: the date ordering is invalid or the composite
// score falls below the threshold.
func (me *MatchingEngine) ScoreOrder(storefront *models.StorefrontOrder, supplier *models.SupplierOrder) *MatchResult {
	if result := me.intl.Score(storefront, supplier); result != nil {
		return result
	}

	valid, status, dayDiff := ValidateDates(storefront.SaleDate, supplier.OrderDate)
	if !valid {
		return nil
	}

	blob := ""
	if supplier.Address != nil {
		blob = supplier.Address.Blob()
	}

	nameScore := NameInAddressScore(storefront.BuyerName, blob)
	cityScore := CityInAddressScore(storefront.City, blob)
	stateScore := StateScore(storefront.State, blob)
	zipScore := ZipScore(storefront.Zip, blob)
	titleScore := TitleSimilarity(storefront.Title, supplier.FirstProduct().Title)

	score := me.weights.Name*float64(nameScore) +
		me.weights.Zip*float64(zipScore) +
		me.weights.Title*float64(titleScore) +
		me.weights.City*float64(cityScore) +
		me.weights.State*float64(stateScore)

	if score < me.Config.Threshold {
		return nil
	}

	return &MatchResult{
		Supplier:     supplier,
		Score:        score,
		Method:       models.MatchMethodStandard,
		DateStatus:   status,
		DateDiffDays: dayDiff,
		FieldScores: map[string]int{
			"name":  nameScore,
			"zip":   zipScore,
			"title": titleScore,
			"city":  cityScore,
			"state": stateScore,
		},
		Reasons: matchReasons(nameScore, zipScore, titleScore, cityScore, stateScore),
	}
}

func matchReasons(name, zip, title, city, state int) []string {
	var reasons []string
	if name >= 90 {
		reasons = append(reasons, "buyer name found in shipping address")
	}
	if zip == 100 {
		reasons = append(reasons, "zip code verified")
	}
	if state == 100 {
		reasons = append(reasons, "state verified")
	}
	if city >= 90 {
		reasons = append(reasons, "city found in shipping address")
	}
	if title >= 80 {
		reasons = append(reasons, "product titles closely similar")
	}
	return reasons
}

// Selector performs best-candidate selection across a reconciliation run.
// It owns the consumption set: once a supplier order wins a match it cannot
// be matched again. Storefront orders are processed in input order
// (first-come-first-served), which makes selection deterministic.
type Selector struct {
	engine *MatchingEngine
	used   map[string]bool
	logger logger.Logger
}

// NewSelector creates a selector over the given engine.
func NewSelector(engine *MatchingEngine) *Selector {
	return &Selector{
		engine: engine,
		used:   make(map[string]bool),
		logger: logger.GetGlobalLogger().WithComponent("selector"),
	}
}

// ProgressFunc is invoked after each storefront order is processed.
type ProgressFunc func(processed, total int)

// Select matches each storefront order against the unconsumed supplier
// orders. Candidates are ranked by closest fulfillment date, then highest
// score, then supplier input order. The context is checked between
// storefront iterations.
func (s *Selector) Select(ctx context.Context, storefronts []*models.StorefrontOrder, suppliers []*models.SupplierOrder, progress ProgressFunc) ([]*Match, []*models.StorefrontOrder, error) {
	var matches []*Match
	var unmatched []*models.StorefrontOrder

	for i, storefront := range storefronts {
		select {
		case <-ctx.Done():
			return matches, unmatched, ctx.Err()
		default:
		}

		best := s.selectBest(storefront, suppliers)
		if best != nil {
			s.used[best.Supplier.Key()] = true
			matches = append(matches, &Match{Storefront: storefront, Result: best})
		} else {
			unmatched = append(unmatched, storefront)
		}

		if progress != nil {
			progress(i+1, len(storefronts))
		}
	}

	s.logger.WithFields(logger.Fields{
		"storefront_orders": len(storefronts),
		"matched":           len(matches),
		"unmatched":         len(unmatched),
	}).Info("Candidate selection complete")

	return matches, unmatched, nil
}

// selectBest scores the unconsumed supplier orders and applies the
// tie-break: minimum absolute day difference, then maximum score, then
// first in supplier input order.
func (s *Selector) selectBest(storefront *models.StorefrontOrder, suppliers []*models.SupplierOrder) *MatchResult {
	results := s.scoreCandidates(storefront, suppliers)

	var best *MatchResult
	for _, result := range results {
		if result == nil {
			continue
		}
		if best == nil || betterCandidate(result, best) {
			best = result
		}
	}
	return best
}

// scoreCandidates scores every unconsumed supplier order, preserving the
// supplier input order in the result slice. With Workers > 1 the scoring
// fans out over a bounded pool; selection stays deterministic because the
// tie-break reads the ordered slice.
func (s *Selector) scoreCandidates(storefront *models.StorefrontOrder, suppliers []*models.SupplierOrder) []*MatchResult {
	results := make([]*MatchResult, len(suppliers))

	workers := s.engine.Config.Workers
	if workers <= 1 {
		for i, supplier := range suppliers {
			if s.used[supplier.Key()] {
				continue
			}
			results[i] = s.engine.ScoreOrder(storefront, supplier)
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.engine.ScoreOrder(storefront, suppliers[i])
			}
		}()
	}
	for i, supplier := range suppliers {
		if s.used[supplier.Key()] {
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// betterCandidate reports whether a should replace b. Both are non-nil.
// Earlier input order wins ties because the scan visits candidates in order
// and replacement requires a strict improvement.
func betterCandidate(a, b *MatchResult) bool {
	absA := absInt(a.DateDiffDays)
	absB := absInt(b.DateDiffDays)
	if absA != absB {
		return absA < absB
	}
	return a.Score > b.Score
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
