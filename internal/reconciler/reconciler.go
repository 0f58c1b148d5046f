// Package reconciler provides high-level orchestration for the order
// reconciliation process.
//
// This package coordinates the entire reconciliation workflow, including:
//   - Loading storefront and supplier order exports
//   - Matching storefront orders to supplier orders
//   - Cost normalization and profit calculation
//   - Progress tracking and reporting
//   - Result and summary generation
//
// Example usage:
//
//	service, err := reconciler.NewService(nil)
//	service.AddProgressCallback(func(progress *reconciler.RunProgress) {
//		fmt.Printf("%s: %d/%d\n", progress.Stage, progress.OrdersProcessed, progress.TotalOrders)
//	})
//
//	request := &reconciler.Request{
//		StorefrontFile: "ebay_orders.json",
//		SupplierFiles:  []string{"main_amazon.json", "second_amazon.json"},
//	}
//
//	result, err := service.Reconcile(ctx, request)
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-reconciliation-service/internal/currency"
	"order-reconciliation-service/internal/matcher"
	"order-reconciliation-service/internal/models"
	"order-reconciliation-service/internal/parsers"
	"order-reconciliation-service/internal/profit"
	"order-reconciliation-service/pkg/errors"
	"order-reconciliation-service/pkg/logger"
)

// Config holds configuration options for the reconciliation service.
type Config struct {
	// Matching configures scoring and selection. Nil uses the defaults.
	Matching *matcher.MatchingConfig
	// Normalizer configures cost normalization. Nil uses the defaults.
	Normalizer *currency.NormalizerConfig
	// RateClient configures the historical rate client built when no
	// RateProvider is supplied. Ignored when Normalizer.Offline is set.
	RateClient *currency.ClientConfig
	// RateProvider overrides the HTTP rate client, mainly for tests.
	RateProvider currency.RateProvider
	// Loader configures export ingestion. Nil uses the defaults.
	Loader *parsers.LoaderConfig
}

// DefaultConfig returns a default configuration for the reconciliation
// service.
func DefaultConfig() *Config {
	return &Config{
		Matching:   matcher.DefaultMatchingConfig(),
		Normalizer: currency.DefaultNormalizerConfig(),
		RateClient: currency.DefaultClientConfig(),
	}
}

// Request represents one reconciliation run over a storefront export and one
// or more supplier exports.
type Request struct {
	StorefrontFile string
	SupplierFiles  []string
}

// Validate validates the reconciliation request.
func (r *Request) Validate() error {
	if r.StorefrontFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "storefront_file", nil, nil).
			WithSuggestion("provide the storefront order export with --storefront")
	}
	if len(r.SupplierFiles) == 0 {
		return errors.ValidationError(errors.CodeMissingField, "supplier_files", nil, nil).
			WithSuggestion("provide at least one supplier order export with --supplier")
	}
	return nil
}

// RunProgress tracks the progress of a reconciliation run.
type RunProgress struct {
	RunID           string        `json:"run_id"`
	Stage           string        `json:"stage"`
	CompletedStages int           `json:"completed_stages"`
	TotalStages     int           `json:"total_stages"`
	OrdersProcessed int           `json:"orders_processed"`
	TotalOrders     int           `json:"total_orders"`
	MatchesFound    int           `json:"matches_found"`
	StartTime       time.Time     `json:"start_time"`
	ElapsedTime     time.Duration `json:"elapsed_time"`
}

// ProgressCallback is called to report reconciliation progress.
type ProgressCallback func(*RunProgress)

// Run stages reported through progress callbacks.
const (
	StageLoadStorefront = "loading storefront orders"
	StageLoadSuppliers  = "loading supplier orders"
	StageMatching       = "matching orders"
	StageCalculating    = "calculating financials"
	StageSummarizing    = "building summary"

	totalStages = 5
)

// Service orchestrates the complete reconciliation process.
type Service struct {
	config     *Config
	loader     *parsers.OrderLoader
	engine     *matcher.MatchingEngine
	calculator *profit.Calculator
	logger     logger.Logger

	progressCallbacks []ProgressCallback
	currentProgress   *RunProgress
	progressMutex     sync.Mutex
}

// NewService creates a reconciliation service. A nil config uses defaults.
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	engine, err := matcher.NewMatchingEngine(config.Matching)
	if err != nil {
		return nil, err
	}

	normalizerConfig := config.Normalizer
	if normalizerConfig == nil {
		normalizerConfig = currency.DefaultNormalizerConfig()
	}

	provider := config.RateProvider
	if provider == nil && !normalizerConfig.Offline {
		provider = currency.NewClient(config.RateClient, currency.NewRateCache(0, 0, 0))
	}

	normalizer := currency.NewNormalizer(normalizerConfig, provider)

	return &Service{
		config:     config,
		loader:     parsers.NewOrderLoader(config.Loader),
		engine:     engine,
		calculator: profit.NewCalculator(normalizer),
		logger:     logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// AddProgressCallback registers a progress callback function.
func (s *Service) AddProgressCallback(callback ProgressCallback) {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()
	s.progressCallbacks = append(s.progressCallbacks, callback)
}

// Reconcile performs the complete reconciliation run.
func (s *Service) Reconcile(ctx context.Context, request *Request) (*Result, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := s.logger.WithField("run_id", runID)
	op := logger.NewOperationLogger("reconciliation", log)
	startTime := time.Now()

	s.initProgress(runID, startTime)

	// Stage 1: storefront export.
	s.updateStage(StageLoadStorefront, 0)
	op.Step(StageLoadStorefront)

	storefronts, storefrontStats, err := s.loader.LoadStorefrontOrders(request.StorefrontFile)
	if err != nil {
		op.Error(err, "Failed to load storefront orders")
		return nil, err
	}

	// Stage 2: supplier exports, one account label per file.
	s.updateStage(StageLoadSuppliers, 1)
	op.Step(StageLoadSuppliers)

	var suppliers []*models.SupplierOrder
	supplierSkipped := 0
	accountOrders := make(map[string]int)
	for _, file := range request.SupplierFiles {
		orders, stats, err := s.loader.LoadSupplierOrders(file)
		if err != nil {
			op.Error(err, "Failed to load supplier orders")
			return nil, err
		}
		suppliers = append(suppliers, orders...)
		supplierSkipped += stats.Skipped
		for _, order := range orders {
			accountOrders[order.Account]++
		}
	}

	log.WithFields(logger.Fields{
		"storefront_orders": len(storefronts),
		"supplier_orders":   len(suppliers),
		"supplier_files":    len(request.SupplierFiles),
	}).Info("Loaded order exports")

	// Stage 3: matching.
	s.updateStage(StageMatching, 2)
	s.setTotalOrders(len(storefronts))
	op.Step(StageMatching)

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "order matching",
		Total:     int64(len(storefronts)),
		Logger:    log,
	})

	selector := matcher.NewSelector(s.engine)
	matches, unmatched, err := selector.Select(ctx, storefronts, suppliers, func(processed, total int) {
		tracker.Update(int64(processed))
		s.orderProgress(processed, total)
	})
	if err != nil {
		tracker.CompleteWithError(err)
		op.Error(err, "Matching aborted")
		return nil, errors.MatchingError(errors.CodeSelectionError, "candidate_selection", err)
	}
	tracker.Complete()

	// Stage 4: financials.
	s.updateStage(StageCalculating, 3)
	op.Step(StageCalculating)

	records := make([]*models.MatchRecord, 0, len(matches))
	for i, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "financial_calculation", err)
		}
		records = append(records, s.buildRecord(ctx, i+1, match))
	}

	// Stage 5: summary.
	s.updateStage(StageSummarizing, 4)
	op.Step(StageSummarizing)

	result := &Result{
		RunID:       runID,
		Records:     records,
		Unmatched:   unmatched,
		ProcessedAt: startTime,
		Request:     request,
	}
	result.Summary = buildSummary(result, accountOrders, storefrontStats.Skipped+supplierSkipped, time.Since(startTime))

	s.finishProgress(len(records))
	op.WithFields(logger.Fields{
		"matched":    len(records),
		"unmatched":  len(unmatched),
		"match_rate": result.Summary.MatchRate,
	}).Success("Reconciliation completed")

	return result, nil
}

// buildRecord assembles the output record for one matched pair.
func (s *Service) buildRecord(ctx context.Context, masterNo int, match *matcher.Match) *models.MatchRecord {
	storefront := match.Storefront
	supplier := match.Result.Supplier
	fin := s.calculator.Calculate(ctx, storefront, supplier)

	product := supplier.FirstProduct()

	return &models.MatchRecord{
		MasterNo: masterNo,

		StorefrontID: storefront.ID,
		SupplierID:   supplier.ID,
		Account:      supplier.Account,

		StorefrontRaw: storefront.Raw,
		SupplierRaw:   supplier.Raw,

		SupplierProductTitle: product.Title,
		SupplierProductURL:   product.URL,
		SupplierASIN:         product.ASIN(),

		MatchScore:          match.Result.Score,
		MatchMethod:         match.Result.Method,
		DateDiffDays:        match.Result.DateDiffDays,
		DateStatus:          match.Result.DateStatus,
		IsInternational:     match.Result.IsInternational,
		NameMatchConfidence: match.Result.NameConfidence,

		CalculatedEarnings: fin.Earnings,
		CalculatedCost:     fin.Cost,
		CalculatedProfit:   fin.Profit,
		MarginPercent:      fin.MarginPercent,
		ROIPercent:         fin.ROIPercent,
		CostMethod:         fin.CostMethod,
		ExchangeRateUsed:   fin.RateUsed,
	}
}

// Progress helpers. Callbacks run under the mutex so concurrent scorers
// cannot interleave updates.

func (s *Service) initProgress(runID string, startTime time.Time) {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()

	s.currentProgress = &RunProgress{
		RunID:       runID,
		TotalStages: totalStages,
		StartTime:   startTime,
	}
}

func (s *Service) updateStage(stage string, completed int) {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()

	s.currentProgress.Stage = stage
	s.currentProgress.CompletedStages = completed
	s.currentProgress.ElapsedTime = time.Since(s.currentProgress.StartTime)
	s.notifyLocked()
}

func (s *Service) setTotalOrders(total int) {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()
	s.currentProgress.TotalOrders = total
}

// orderProgress is handed to the selector as its per-order callback.
func (s *Service) orderProgress(processed, total int) {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()

	s.currentProgress.OrdersProcessed = processed
	s.currentProgress.TotalOrders = total
	s.currentProgress.ElapsedTime = time.Since(s.currentProgress.StartTime)
	s.notifyLocked()
}

func (s *Service) finishProgress(matches int) {
	s.progressMutex.Lock()
	defer s.progressMutex.Unlock()

	s.currentProgress.CompletedStages = totalStages
	s.currentProgress.MatchesFound = matches
	s.currentProgress.ElapsedTime = time.Since(s.currentProgress.StartTime)
	s.notifyLocked()
}

func (s *Service) notifyLocked() {
	snapshot := *s.currentProgress
	for _, callback := range s.progressCallbacks {
		callback(&snapshot)
	}
}
