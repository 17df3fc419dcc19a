package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/s0up4200/dnscerts/dnsimple"
)

var testNow = time.Date(2020, time.September, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// generateTestCertificates creates certificates expiring one day apart
func generateTestCertificates(count int) []dnsimple.Certificate {
	certs := make([]dnsimple.Certificate, count)

	for i := 0; i < count; i++ {
		authority := dnsimple.LetsencryptAuthority
		if i%4 == 0 {
			authority = "comodo"
		}
		certs[i] = dnsimple.Certificate{
			ID:                  int64(i + 1),
			DomainID:            int64(100 + i%3),
			Name:                fmt.Sprintf("www%d", i),
			CommonName:          fmt.Sprintf("www%d.example.com", i),
			AlternateNames:      []string{fmt.Sprintf("api%d.example.com", i)},
			State:               dnsimple.CertificateStateIssued,
			AuthorityIdentifier: authority,
			AutoRenew:           i%2 == 0,
			Years:               1,
			CreatedAt:           "2020-06-18T18:54:17Z",
			ExpiresOn:           testNow.AddDate(0, 0, i).Format(dnsimple.ExpiresOnLayout),
		}
	}

	return certs
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `hasName("www.bingo.pizza")`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasName("unclosed`,
			wantErr:    true,
		},
		{
			name:       "non boolean result",
			expression: `CommonName`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `isLetsencrypt() and expiresWithin(30) and not AutoRenew`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := NewExprCompiler(WithClock(testClock)).Compile(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				var compErr *CompilationError
				if !errors.As(err, &compErr) {
					t.Errorf("expected CompilationError, got %T", err)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filter.Expression() != strings.TrimSpace(tt.expression) {
				t.Errorf("unexpected expression %q", filter.Expression())
			}
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	cert := dnsimple.Certificate{
		ID:                  101967,
		DomainID:            289333,
		Name:                "www",
		CommonName:          "www.bingo.pizza",
		AlternateNames:      []string{"api.bingo.pizza"},
		State:               dnsimple.CertificateStateIssued,
		AuthorityIdentifier: "letsencrypt",
		AutoRenew:           false,
		Years:               1,
		CreatedAt:           "2020-06-18T18:54:17Z",
		ExpiresOn:           "2020-09-16",
	}
	pending := dnsimple.Certificate{
		ID:         101972,
		CommonName: "new.bingo.pizza",
		State:      dnsimple.CertificateStateRequesting,
	}

	tests := []struct {
		name       string
		expression string
		cert       dnsimple.Certificate
		expected   bool
	}{
		{"has common name", `hasName("www.bingo.pizza")`, cert, true},
		{"has alternate name", `hasName("API.bingo.pizza")`, cert, true},
		{"does not have name", `hasName("mail.bingo.pizza")`, cert, false},
		{"state comparison", `State == "issued"`, cert, true},
		{"state helper", `stateIs("ISSUED")`, cert, true},
		{"expires within", `expiresWithin(30)`, cert, true},
		{"does not expire within", `expiresWithin(7)`, cert, false},
		{"days until expiry", `daysUntilExpiry() == 15`, cert, true},
		{"expiry date comparison", `ExpiresOn < daysFromNow(30)`, cert, true},
		{"parse date", `ExpiresOn == parseDate("2020-09-16")`, cert, true},
		{"letsencrypt", `isLetsencrypt() and isIssued()`, cert, true},
		{"auto renew", `not AutoRenew`, cert, true},
		{"struct access", `Certificate.DomainID == 289333`, cert, true},
		{"ends with fold", `endsWithFold(CommonName, ".PIZZA")`, cert, true},
		{"starts with fold", `startsWithFold(CommonName, "WWW.")`, cert, true},
		{"contains fold", `containsFold(CommonName, "Bingo")`, cert, true},
		{"contains fold miss", `containsFold(CommonName, "mail")`, cert, false},
		{"endsWith operator", `CommonName endsWith ".pizza"`, cert, true},
		{"today", `today() == daysFromNow(0)`, cert, true},
		{"created date", `CreatedAt < daysAgo(30)`, cert, true},
		{"pending never expires within", `expiresWithin(30)`, pending, false},
		{"pending has no expiry", `not HasExpiry and daysUntilExpiry() == -1`, pending, true},
		{"complex expression", `isLetsencrypt() and expiresWithin(30) and len(AlternateNames) > 0`, cert, true},
	}

	compiler := NewExprCompiler(WithClock(testClock))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			if err != nil {
				t.Fatalf("failed to compile filter: %v", err)
			}

			result := filter.Evaluate(tt.cert)
			if result != tt.expected {
				t.Errorf("expected %v but got %v for expression %q", tt.expected, result, tt.expression)
			}
		})
	}
}

func TestCustomFunctions(t *testing.T) {
	compiler := NewExprCompiler(
		WithClock(testClock),
		WithCustomFunctions(map[string]any{
			"isStaging": func(name string) bool { return strings.HasPrefix(name, "staging.") },
		}),
	)

	filter, err := compiler.Compile(`isStaging(CommonName)`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	if !filter.Evaluate(dnsimple.Certificate{CommonName: "staging.example.com"}) {
		t.Error("expected staging certificate to match")
	}
	if filter.Evaluate(dnsimple.Certificate{CommonName: "www.example.com"}) {
		t.Error("expected www certificate not to match")
	}
}

func TestMatchReportsRuntimeErrors(t *testing.T) {
	compiler := NewExprCompiler(WithClock(testClock))

	filter, err := compiler.Compile(`undefinedHelper("x")`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	cert := dnsimple.Certificate{CommonName: "www.example.com"}
	_, err = filter.Match(cert)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.CertificateName != "www.example.com" {
		t.Errorf("unexpected certificate name %q", evalErr.CertificateName)
	}
	if filter.Evaluate(cert) {
		t.Error("runtime errors must not match")
	}
}

func TestConcurrentEvaluation(t *testing.T) {
	certs := generateTestCertificates(1000)

	filter, err := NewExprCompiler(WithClock(testClock)).Compile(`isLetsencrypt() and expiresWithin(500)`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	ctx := context.Background()
	evaluator := NewConcurrentEvaluator(WithWorkers(4), WithBatchSize(50))
	defer evaluator.Stop(ctx)

	matches, err := evaluator.Evaluate(ctx, filter, certs)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}

	expected := evaluateSequential(filter, certs)
	if len(matches) != len(expected) {
		t.Fatalf("expected %d matches but got %d", len(expected), len(matches))
	}
	for i := range expected {
		if matches[i].ID != expected[i].ID {
			t.Fatalf("match %d: expected ID %d but got %d", i, expected[i].ID, matches[i].ID)
		}
	}
}

func TestConcurrentEvaluationCanceled(t *testing.T) {
	certs := generateTestCertificates(500)

	filter, err := CompileFilter(`isIssued()`)
	if err != nil {
		t.Fatalf("failed to compile filter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	evaluator := NewConcurrentEvaluator(WithWorkers(2), WithBatchSize(10))
	defer evaluator.Stop(context.Background())

	if _, err := evaluator.Evaluate(ctx, filter, certs); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBatchEvaluation(t *testing.T) {
	certs := generateTestCertificates(200)

	filters := map[string]string{
		"letsencrypt": `isLetsencrypt()`,
		"autoRenew":   `AutoRenew`,
		"nothing":     `hasName("missing.example.com")`,
	}

	results, err := EvaluateFilters(context.Background(), filters, certs)
	if err != nil {
		t.Fatalf("batch evaluation failed: %v", err)
	}

	if len(results) != len(filters) {
		t.Fatalf("expected %d filter results but got %d", len(filters), len(results))
	}
	if got := len(results["letsencrypt"]); got != 150 {
		t.Errorf("expected 150 letsencrypt certificates, got %d", got)
	}
	if got := len(results["autoRenew"]); got != 100 {
		t.Errorf("expected 100 auto renew certificates, got %d", got)
	}
	if got := len(results["nothing"]); got != 0 {
		t.Errorf("expected no matches, got %d", got)
	}
}

func TestFilterManager(t *testing.T) {
	manager := NewManager(WithCompiler(NewExprCompiler(WithClock(testClock))))
	ctx := context.Background()
	defer manager.Close(ctx)

	filters := map[string]string{
		"expiring": `expiresWithin(30)`,
		"manual":   `not AutoRenew`,
		"lets":     `isLetsencrypt()`,
	}

	if err := manager.RegisterFilters(filters); err != nil {
		t.Fatalf("failed to register filters: %v", err)
	}

	names := manager.ListFilters()
	if strings.Join(names, ",") != "expiring,lets,manual" {
		t.Errorf("unexpected filter names %v", names)
	}

	certs := generateTestCertificates(100)
	matches, err := manager.EvaluateFilter(ctx, "expiring", certs)
	if err != nil {
		t.Fatalf("failed to evaluate filter: %v", err)
	}
	if len(matches) != 31 {
		t.Errorf("expected 31 certificates expiring within 30 days, got %d", len(matches))
	}

	selected, err := manager.EvaluateSelected(ctx, []string{"manual"}, certs)
	if err != nil {
		t.Fatalf("failed to evaluate selected filters: %v", err)
	}
	if len(selected) != 1 || len(selected["manual"]) != 50 {
		t.Errorf("unexpected selected results %v", len(selected["manual"]))
	}

	if _, err := manager.EvaluateSelected(ctx, []string{"unknown"}, certs); err == nil {
		t.Error("expected error for unknown filter")
	}

	resolved, err := manager.Resolve("manual")
	if err != nil || resolved.Expression() != "not AutoRenew" {
		t.Errorf("expected preset to resolve, got %v, %v", resolved, err)
	}
	resolved, err = manager.Resolve(`hasName("www1.example.com")`)
	if err != nil {
		t.Fatalf("failed to resolve expression: %v", err)
	}
	if got := len(evaluateSequential(resolved, certs)); got != 1 {
		t.Errorf("expected 1 match for resolved expression, got %d", got)
	}

	manager.UnregisterFilter("expiring")
	if _, exists := manager.GetFilter("expiring"); exists {
		t.Error("expected filter 'expiring' to be removed")
	}

	if err := manager.RegisterFilters(map[string]string{"ok": `AutoRenew`, "broken": `(`}); err == nil {
		t.Error("expected error for broken filter")
	}
	if _, exists := manager.GetFilter("ok"); exists {
		t.Error("no filter should be registered when one fails to compile")
	}
}

func TestCacheEffectiveness(t *testing.T) {
	compiler := NewExprCompiler(WithCache(10), WithClock(testClock))
	expression := `isLetsencrypt() and expiresWithin(30)`

	first, err := compiler.Compile(expression)
	if err != nil {
		t.Fatalf("first compilation failed: %v", err)
	}

	second, err := compiler.Compile(expression)
	if err != nil {
		t.Fatalf("second compilation failed: %v", err)
	}
	if first != second {
		t.Error("expected cached filter to be reused")
	}

	cachingCompiler, ok := compiler.(CachingCompiler)
	if !ok {
		t.Fatal("expected compiler to implement CachingCompiler")
	}
	if cachingCompiler.Size() != 1 {
		t.Errorf("expected cache size 1 but got %d", cachingCompiler.Size())
	}

	stats := compiler.(interface{ Stats() CacheStats }).Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("unexpected cache stats %+v", stats)
	}

	cachingCompiler.Clear()
	if cachingCompiler.Size() != 0 {
		t.Errorf("expected cache size 0 after clear but got %d", cachingCompiler.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache(2)
	compiler := NewExprCompiler()

	a, _ := compiler.Compile(`AutoRenew`)
	b, _ := compiler.Compile(`not AutoRenew`)
	c, _ := compiler.Compile(`isIssued()`)

	cache.Put("a", a)
	cache.Put("b", b)
	cache.Get("a")
	cache.Put("c", c)

	if _, ok := cache.Get("b"); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("expected recently used entry to survive")
	}
	if cache.Size() != 2 {
		t.Errorf("expected size 2, got %d", cache.Size())
	}
}

func TestWorkerPoolStop(t *testing.T) {
	pool := NewWorkerPool(2)

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		if err := pool.Submit(func() { done <- struct{}{} }); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if len(done) != 3 {
		t.Errorf("expected queued work to finish before Stop returns, got %d", len(done))
	}
	if err := pool.Submit(func() {}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}
