package filter

import (
	"context"

	"github.com/s0up4200/dnscerts/dnsimple"
)

// Filter defines the basic interface for certificate filters
type Filter interface {
	// Evaluate checks if a certificate matches the filter criteria
	Evaluate(cert dnsimple.Certificate) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Match is Evaluate with the runtime error surfaced
	Match(cert dnsimple.Certificate) (bool, error)

	// Expression returns the original filter expression
	Expression() string

	// IsThreadSafe indicates if the filter can be evaluated concurrently
	IsThreadSafe() bool
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against certificates
type Evaluator interface {
	// Evaluate evaluates a filter against all certificates
	Evaluate(ctx context.Context, filter CompiledFilter, certs []dnsimple.Certificate) ([]dnsimple.Certificate, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	// EvaluateBatch evaluates multiple filters against certificates concurrently
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, certs []dnsimple.Certificate) (map[string][]dnsimple.Certificate, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// BatchResult represents the result of evaluating a filter
type BatchResult struct {
	FilterName string
	Matches    []dnsimple.Certificate
	Error      error
}

// WorkerPool defines the interface for concurrent work execution
type WorkerPool interface {
	// Submit submits work to the pool
	Submit(work func()) error

	// Stop gracefully stops the worker pool
	Stop(ctx context.Context) error
}
