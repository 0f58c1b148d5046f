package matcher

import (
	"context"
	"testing"
	"time"

	"order-reconciliation-service/internal/models"
)

func testDate(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, ok := models.ParseOrderDate(value)
	if !ok {
		t.Fatalf("bad test date %q", value)
	}
	return &parsed
}

func createTestStorefrontOrder(t *testing.T, id string) *models.StorefrontOrder {
	t.Helper()
	return &models.StorefrontOrder{
		ID:        id,
		BuyerName: "John Smith",
		Title:     "Wireless Mouse 2 Pack",
		City:      "Austin",
		State:     "TX",
		Zip:       "78701",
		SaleDate:  testDate(t, "2024-01-15"),
		Raw:       map[string]interface{}{"orderId": id},
	}
}

func createTestSupplierOrder(t *testing.T, id, account, orderDate string) *models.SupplierOrder {
	t.Helper()
	return &models.SupplierOrder{
		ID:        id,
		Account:   account,
		OrderDate: testDate(t, orderDate),
		Address: &models.StructuredAddress{
			Name:   "John Smith",
			Street: "500 Congress Ave",
			City:   "Austin",
			State:  "TX",
			Zip:    "78701",
		},
		Products: []models.Product{
			{Title: "Wireless Mouse 2pcs", URL: "https://www.amazon.com/dp/B08N5WRWNW"},
		},
		Raw: map[string]interface{}{"orderId": id},
	}
}

func TestNewMatchingEngine(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Config.Threshold != 70 {
		t.Errorf("expected default threshold 70, got %f", engine.Config.Threshold)
	}

	// nil config falls back to defaults
	engine, err = NewMatchingEngine(nil)
	if err != nil {
		t.Fatalf("unexpected error with nil config: %v", err)
	}
	if engine.Config.Threshold != 70 {
		t.Errorf("expected default threshold with nil config, got %f", engine.Config.Threshold)
	}
}

func TestNewMatchingEngineInvalidThreshold(t *testing.T) {
	config := DefaultMatchingConfig()
	config.Threshold = 150

	if _, err := NewMatchingEngine(config); err == nil {
		t.Error("expected error for threshold above 100")
	}

	config = DefaultMatchingConfig()
	config.International.NameThreshold = 50
	if _, err := NewMatchingEngine(config); err == nil {
		t.Error("expected error for international name threshold below 70")
	}
}

func TestWeightFallback(t *testing.T) {
	config := DefaultMatchingConfig()
	config.Weights = FieldWeights{Name: 0.9, Zip: 0.9, Title: 0.9, City: 0.9, State: 0.9}

	engine, err := NewMatchingEngine(config)
	if err != nil {
		t.Fatalf("imbalanced weights should not be fatal: %v", err)
	}

	weights := engine.EffectiveWeights()
	defaults := DefaultMatchingConfig().Weights
	if weights != defaults {
		t.Errorf("expected fallback to default weights, got %+v", weights)
	}
}

func TestScoreOrderStrongMatch(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}

	storefront := createTestStorefrontOrder(t, "sf-1")
	supplier := createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16")

	result := engine.ScoreOrder(storefront, supplier)
	if result == nil {
		t.Fatal("expected a candidate for matching name/city/state/zip/title")
	}
	if result.Score < 70 || result.Score > 100 {
		t.Errorf("score %f outside [70,100]", result.Score)
	}
	if result.Method != models.MatchMethodStandard {
		t.Errorf("expected standard method, got %s", result.Method)
	}
	if result.DateStatus != models.DateStatusValid {
		t.Errorf("expected valid date status, got %s", result.DateStatus)
	}
	if result.DateDiffDays != 1 {
		t.Errorf("expected day diff 1, got %d", result.DateDiffDays)
	}
	if result.FieldScores["zip"] != 100 {
		t.Errorf("expected binary zip hit, got %d", result.FieldScores["zip"])
	}
	if result.FieldScores["state"] != 100 {
		t.Errorf("expected binary state hit, got %d", result.FieldScores["state"])
	}
}

func TestScoreOrderRejectsInvalidDateOrder(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}

	storefront := createTestStorefrontOrder(t, "sf-1")
	// Supplier order placed before the sale cannot fulfill it.
	supplier := createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-10")

	if result := engine.ScoreOrder(storefront, supplier); result != nil {
		t.Errorf("expected rejection for supplier order predating the sale, got score %f", result.Score)
	}
}

func TestScoreOrderDateSkip(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}

	storefront := createTestStorefrontOrder(t, "sf-1")
	supplier := createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16")
	supplier.OrderDate = nil

	result := engine.ScoreOrder(storefront, supplier)
	if result == nil {
		t.Fatal("expected unparsable date to be skipped, not rejected")
	}
	if result.DateStatus != models.DateStatusSkip {
		t.Errorf("expected date_skip status, got %s", result.DateStatus)
	}
}

func TestScoreOrderBelowThreshold(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}

	storefront := createTestStorefrontOrder(t, "sf-1")
	supplier := createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16")
	supplier.Address = &models.StructuredAddress{
		Name:   "Maria Garcia",
		Street: "9 Elm St",
		City:   "Portland",
		State:  "OR",
		Zip:    "97201",
	}
	supplier.Products = []models.Product{{Title: "Ceramic Flower Pot"}}

	if result := engine.ScoreOrder(storefront, supplier); result != nil {
		t.Errorf("expected no candidate for unrelated order, got score %f", result.Score)
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	storefront := createTestStorefrontOrder(t, "sf-1")
	supplier := createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16")
	// Weaken the match so it sits between the two thresholds.
	supplier.Products = []models.Product{{Title: "Optical Mouse"}}
	supplier.Address = &models.StructuredAddress{
		Name:  "John Smith",
		City:  "Austin",
		State: "TX",
		Zip:   "73301",
	}

	lowConfig := DefaultMatchingConfig()
	lowConfig.Threshold = 40
	lowEngine, err := NewMatchingEngine(lowConfig)
	if err != nil {
		t.Fatal(err)
	}

	highConfig := DefaultMatchingConfig()
	highConfig.Threshold = 95
	highEngine, err := NewMatchingEngine(highConfig)
	if err != nil {
		t.Fatal(err)
	}

	lowResult := lowEngine.ScoreOrder(storefront, supplier)
	highResult := highEngine.ScoreOrder(storefront, supplier)

	if lowResult == nil {
		t.Fatal("expected a candidate at the low threshold")
	}
	if highResult != nil {
		t.Error("raising the threshold must never add candidates")
	}
}

func TestInternationalMatch(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}

	storefront := createTestStorefrontOrder(t, "sf-1")
	supplier := createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16")
	supplier.Address = &models.ForwardingAddress{
		Inner: &models.StructuredAddress{
			Name:   "eIS CO John Smith",
			Street: "100 Freight Way",
			City:   "Miami",
			State:  "FL",
			Zip:    "33101",
		},
		CarrierCode: "eIS",
		CleanName:   "John Smith",
	}

	result := engine.ScoreOrder(storefront, supplier)
	if result == nil {
		t.Fatal("expected an international candidate")
	}
	if result.Method != models.MatchMethodInternational {
		t.Errorf("expected international method, got %s", result.Method)
	}
	if !result.IsInternational {
		t.Error("expected IsInternational flag")
	}
	if result.Score > 95 {
		t.Errorf("international score %f exceeds the 95 cap", result.Score)
	}
	if result.NameConfidence < 85 {
		t.Errorf("expected name confidence >= threshold, got %d", result.NameConfidence)
	}
}

func TestNameMatchScore(t *testing.T) {
	if got := NameMatchScore("John Smith", "John Smith"); got != 100 {
		t.Errorf("identical names = %d, want 100", got)
	}
	if got := NameMatchScore("Smith John", "John Smith"); got != 100 {
		t.Errorf("reordered names = %d, want 100", got)
	}
	// A buyer name embedded in a longer recipient line scores full marks
	// through the partial ratio.
	if got := NameMatchScore("John Smith", "Mr John Smithson"); got != 100 {
		t.Errorf("embedded name = %d, want 100", got)
	}
	if got := NameMatchScore("John Smith", "Maria Garcia"); got >= 85 {
		t.Errorf("unrelated names = %d, want below the routing threshold", got)
	}
}

func TestInternationalRejectsWrongName(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}

	storefront := createTestStorefrontOrder(t, "sf-1")
	supplier := createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16")
	supplier.Address = &models.ForwardingAddress{
		Inner:       &models.TextAddress{Text: "eIS CO Maria Garcia\n100 Freight Way\nMiami, FL 33101"},
		CarrierCode: "eIS",
		CleanName:   "Maria Garcia",
	}

	if result := engine.ScoreOrder(storefront, supplier); result != nil {
		t.Errorf("expected rejection for mismatched forwarded name, got score %f", result.Score)
	}
}

func TestSelectorAtMostOnceConsumption(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}
	selector := NewSelector(engine)

	storefronts := []*models.StorefrontOrder{
		createTestStorefrontOrder(t, "sf-1"),
		createTestStorefrontOrder(t, "sf-2"),
	}
	suppliers := []*models.SupplierOrder{
		createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16"),
	}

	matches, unmatched, err := selector.Select(context.Background(), storefronts, suppliers, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(matches))
	}
	if len(unmatched) != 1 {
		t.Fatalf("expected 1 unmatched storefront order, got %d", len(unmatched))
	}
	if matches[0].Storefront.ID != "sf-1" {
		t.Errorf("first storefront order should win the only supplier, got %s", matches[0].Storefront.ID)
	}
}

func TestSelectorSameIDDifferentAccounts(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}
	selector := NewSelector(engine)

	storefronts := []*models.StorefrontOrder{
		createTestStorefrontOrder(t, "sf-1"),
		createTestStorefrontOrder(t, "sf-2"),
	}
	// Same supplier order ID on two accounts: both are consumable.
	suppliers := []*models.SupplierOrder{
		createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-16"),
		createTestSupplierOrder(t, "sup-1", "acct2", "2024-01-16"),
	}

	matches, unmatched, err := selector.Select(context.Background(), storefronts, suppliers, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 2 || len(unmatched) != 0 {
		t.Errorf("expected both storefront orders matched, got %d matches %d unmatched", len(matches), len(unmatched))
	}
}

func TestSelectorClosestDateWins(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}
	selector := NewSelector(engine)

	storefronts := []*models.StorefrontOrder{createTestStorefrontOrder(t, "sf-1")}

	// The 5-day candidate has a slightly better title; the 1-day candidate
	// must still win on date proximity.
	far := createTestSupplierOrder(t, "sup-far", "acct1", "2024-01-20")
	far.Products = []models.Product{{Title: "Wireless Mouse 2 Pack"}}
	near := createTestSupplierOrder(t, "sup-near", "acct1", "2024-01-16")
	near.Products = []models.Product{{Title: "Wireless Mouse"}}

	matches, _, err := selector.Select(context.Background(), storefronts, []*models.SupplierOrder{far, near}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Result.Supplier.ID != "sup-near" {
		t.Errorf("expected closest-date candidate to win, got %s", matches[0].Result.Supplier.ID)
	}
}

func TestSelectorScoreBreaksDateTies(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}
	selector := NewSelector(engine)

	storefronts := []*models.StorefrontOrder{createTestStorefrontOrder(t, "sf-1")}

	// Same fulfillment date; the weak candidate misses the zip check.
	weak := createTestSupplierOrder(t, "sup-weak", "acct1", "2024-01-16")
	weak.Address = &models.StructuredAddress{
		Name:   "John Smith",
		Street: "500 Congress Ave",
		City:   "Austin",
		State:  "TX",
		Zip:    "73301",
	}
	strong := createTestSupplierOrder(t, "sup-strong", "acct1", "2024-01-16")

	matches, _, err := selector.Select(context.Background(), storefronts, []*models.SupplierOrder{weak, strong}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Result.Supplier.ID != "sup-strong" {
		t.Errorf("expected higher score to break the date tie, got %s", matches[0].Result.Supplier.ID)
	}
}

func TestSelectorDeterministicFirstOnFullTie(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}

	storefronts := []*models.StorefrontOrder{createTestStorefrontOrder(t, "sf-1")}
	suppliers := []*models.SupplierOrder{
		createTestSupplierOrder(t, "sup-a", "acct1", "2024-01-16"),
		createTestSupplierOrder(t, "sup-b", "acct1", "2024-01-16"),
	}

	for i := 0; i < 3; i++ {
		selector := NewSelector(engine)
		matches, _, err := selector.Select(context.Background(), storefronts, suppliers, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 || matches[0].Result.Supplier.ID != "sup-a" {
			t.Fatalf("run %d: expected first-in-input-order winner sup-a", i)
		}
	}
}

func TestSelectorProgressCallback(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}
	selector := NewSelector(engine)

	storefronts := []*models.StorefrontOrder{
		createTestStorefrontOrder(t, "sf-1"),
		createTestStorefrontOrder(t, "sf-2"),
		createTestStorefrontOrder(t, "sf-3"),
	}

	var calls []int
	_, _, err = selector.Select(context.Background(), storefronts, nil, func(processed, total int) {
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
		calls = append(calls, processed)
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(calls) != 3 || calls[0] != 1 || calls[2] != 3 {
		t.Errorf("expected per-order progress calls 1..3, got %v", calls)
	}
}

func TestSelectorContextCancellation(t *testing.T) {
	engine, err := NewMatchingEngine(DefaultMatchingConfig())
	if err != nil {
		t.Fatal(err)
	}
	selector := NewSelector(engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	storefronts := []*models.StorefrontOrder{createTestStorefrontOrder(t, "sf-1")}
	_, _, err = selector.Select(ctx, storefronts, nil, nil)
	if err == nil {
		t.Error("expected context cancellation error")
	}
}

func TestSelectorWorkerPoolMatchesSequential(t *testing.T) {
	storefronts := []*models.StorefrontOrder{
		createTestStorefrontOrder(t, "sf-1"),
		createTestStorefrontOrder(t, "sf-2"),
	}
	suppliers := []*models.SupplierOrder{
		createTestSupplierOrder(t, "sup-1", "acct1", "2024-01-18"),
		createTestSupplierOrder(t, "sup-2", "acct1", "2024-01-16"),
		createTestSupplierOrder(t, "sup-3", "acct1", "2024-01-17"),
	}

	run := func(workers int) []string {
		config := DefaultMatchingConfig()
		config.Workers = workers
		engine, err := NewMatchingEngine(config)
		if err != nil {
			t.Fatal(err)
		}
		matches, _, err := NewSelector(engine).Select(context.Background(), storefronts, suppliers, nil)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, m := range matches {
			ids = append(ids, m.Result.Supplier.ID)
		}
		return ids
	}

	sequential := run(0)
	parallel := run(4)

	if len(sequential) != len(parallel) {
		t.Fatalf("worker pool changed match count: %v vs %v", sequential, parallel)
	}
	for i := range sequential {
		if sequential[i] != parallel[i] {
			t.Errorf("worker pool changed selection: %v vs %v", sequential, parallel)
			break
		}
	}
}

func TestConfigClone(t *testing.T) {
	config := DefaultMatchingConfig()
	clone := config.Clone()

	clone.Threshold = 99
	clone.Weights.Name = 0.5

	if config.Threshold == 99 {
		t.Error("clone should not share threshold with original")
	}
	if config.Weights.Name == 0.5 {
		t.Error("clone should not share weights with original")
	}
}

func TestConfigFactories(t *testing.T) {
	for name, config := range map[string]*MatchingConfig{
		"default": DefaultMatchingConfig(),
		"strict":  StrictMatchingConfig(),
		"relaxed": RelaxedMatchingConfig(),
	} {
		if err := config.Validate(); err != nil {
			t.Errorf("%s config invalid: %v", name, err)
		}
		if err := config.Weights.Validate(); err != nil {
			t.Errorf("%s weights invalid: %v", name, err)
		}
	}

	if StrictMatchingConfig().Threshold <= DefaultMatchingConfig().Threshold {
		t.Error("strict threshold should exceed default")
	}
	if RelaxedMatchingConfig().Threshold >= DefaultMatchingConfig().Threshold {
		t.Error("relaxed threshold should be below default")
	}
}
