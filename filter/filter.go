package filter

import (
	"context"

	"github.com/s0up4200/dnscerts/dnsimple"
)

var defaultCompiler = NewExprCompiler(WithCache(100))

// CompileFilter compiles expression with the shared caching compiler.
func CompileFilter(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// CreateFilterFunc compiles expression into a predicate.
func CreateFilterFunc(expression string) (func(dnsimple.Certificate) bool, error) {
	filter, err := CompileFilter(expression)
	if err != nil {
		return nil, err
	}
	return filter.Evaluate, nil
}

// EvaluateFilters compiles and evaluates several named expressions at once.
func EvaluateFilters(ctx context.Context, filters map[string]string, certs []dnsimple.Certificate) (map[string][]dnsimple.Certificate, error) {
	manager := NewManager(WithCompiler(defaultCompiler))
	defer manager.Close(context.Background())

	if err := manager.RegisterFilters(filters); err != nil {
		return nil, err
	}
	return manager.EvaluateAll(ctx, certs)
}
