package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	fill       func(env map[string]any, cert dnsimple.Certificate)
	envPool    *sync.Pool
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.customFuncs, funcs)
	}
}

// WithClock sets the time source used by date helpers. Defaults to time.Now.
func WithClock(now func() time.Time) ExprCompilerOption {
	return func(c *exprCompiler) {
		if now != nil {
			c.now = now
		}
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) Compiler {
	c := &exprCompiler{
		customFuncs: make(map[string]any),
		now:         time.Now,
		envPool:     &sync.Pool{},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Initialize environment pool
	c.envPool.New = func() any {
		return make(map[string]any, 48)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	customFuncs map[string]any
	now         func() time.Time
	cache       *lruCache
	envPool     *sync.Pool
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// A zero certificate gives the checker the type of every variable
	env := make(map[string]any, 48)
	c.fillEnvironment(env, dnsimple.Certificate{})

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		fill:       c.fillEnvironment,
		envPool:    c.envPool,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Stats returns the cache counters, or zero when caching is disabled
func (c *exprCompiler) Stats() CacheStats {
	if c.cache != nil {
		return c.cache.Stats()
	}
	return CacheStats{}
}

// fillEnvironment populates env with the helpers and the certificate fields.
func (c *exprCompiler) fillEnvironment(env map[string]any, cert dnsimple.Certificate) {
	now := c.now()
	addHelperFunctions(env, now)
	addCertificateEnvironment(env, cert, now)
	maps.Copy(env, c.customFuncs)
}

// Evaluate evaluates the filter against a certificate. Runtime errors count
// as a non-match.
func (f *exprFilter) Evaluate(cert dnsimple.Certificate) bool {
	ok, err := f.Match(cert)
	return err == nil && ok
}

// Match evaluates the filter and reports runtime errors.
func (f *exprFilter) Match(cert dnsimple.Certificate) (bool, error) {
	env := f.envPool.Get().(map[string]any)
	clear(env)
	defer f.envPool.Put(env)

	f.fill(env, cert)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{
			Expression:      f.expression,
			CertificateName: cert.CommonName,
			Reason:          "failed to run expression",
			Err:             err,
		}
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression:      f.expression,
			CertificateName: cert.CommonName,
			Reason:          fmt.Sprintf("expression returned %T, not bool", result),
		}
	}
	return matched, nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// IsThreadSafe indicates that expr filters are thread-safe
func (f *exprFilter) IsThreadSafe() bool {
	return true
}

// addHelperFunctions adds the certificate independent helpers
func addHelperFunctions(env map[string]any, now time.Time) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(now.Sub(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return now.AddDate(0, 0, -days)
	}
	env["daysFromNow"] = func(days int) time.Time {
		return now.AddDate(0, 0, days)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse(dnsimple.ExpiresOnLayout, dateStr)
		return t
	}
	env["today"] = func() time.Time { return now }
	// Case-insensitive string helpers. contains, startsWith and endsWith are
	// expr operators, and lower/upper are builtins.
	env["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWithFold"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWithFold"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
}

// addCertificateEnvironment adds the certificate fields and the helpers bound
// to a single certificate
func addCertificateEnvironment(env map[string]any, cert dnsimple.Certificate, now time.Time) {
	expiresOn, _ := cert.ExpiresOnTime()
	days, hasExpiry := cert.DaysUntilExpiry(now)

	env["Certificate"] = cert

	env["hasName"] = createHasNameFunc(cert.Names())
	env["expiresWithin"] = createExpiresWithinFunc(days, hasExpiry)
	env["daysUntilExpiry"] = createDaysUntilExpiryFunc(days, hasExpiry)
	env["isLetsencrypt"] = createBoolFunc(cert.IsLetsencrypt())
	env["isIssued"] = createBoolFunc(cert.IsIssued())
	env["stateIs"] = createStateIsFunc(cert.State)

	// Direct properties for convenience
	env["ID"] = cert.ID
	env["DomainID"] = cert.DomainID
	env["Name"] = cert.Name
	env["CommonName"] = cert.CommonName
	env["AlternateNames"] = cert.AlternateNames
	env["State"] = string(cert.State)
	env["Authority"] = cert.AuthorityIdentifier
	env["AutoRenew"] = cert.AutoRenew
	env["Years"] = cert.Years
	env["ExpiresOn"] = expiresOn
	env["HasExpiry"] = hasExpiry
	env["CreatedAt"] = parseTimestamp(cert.CreatedAt)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func createHasNameFunc(names []string) func(string) bool {
	lowerNames := make([]string, len(names))
	for i, name := range names {
		lowerNames[i] = strings.ToLower(name)
	}
	return func(name string) bool {
		return slices.Contains(lowerNames, strings.ToLower(name))
	}
}

func createExpiresWithinFunc(days int, hasExpiry bool) func(int) bool {
	return func(within int) bool {
		return hasExpiry && days <= within
	}
}

func createDaysUntilExpiryFunc(days int, hasExpiry bool) func() int {
	return func() int {
		if !hasExpiry {
			return -1
		}
		return days
	}
}

func createBoolFunc(v bool) func() bool {
	return func() bool {
		return v
	}
}

func createStateIsFunc(state dnsimple.CertificateState) func(string) bool {
	return func(s string) bool {
		return strings.EqualFold(string(state), s)
	}
}
