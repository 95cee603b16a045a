package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/plexshelf/plex"
)

// DefaultCacheSize is the compile cache size used by NewCompiler
const DefaultCacheSize = 100

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	extra      map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// withCustomFunctions adds helper functions on top of the item environment
func withCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.extra, funcs)
	}
}

// NewCompiler creates a caching expr compiler with DefaultCacheSize
func NewCompiler() CachingCompiler {
	return NewExprCompiler(WithCache(DefaultCacheSize))
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{extra: make(map[string]any)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// exprCompiler implements CachingCompiler for expr-based filters
type exprCompiler struct {
	extra map[string]any
	cache *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter. Expressions are
// type-checked against the item environment, so unknown names fail here.
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

	program, err := expr.Compile(expression,
		expr.Env(newEnvironment(plex.Metadata{}, c.extra)),
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
		extra:      c.extra,
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
		return c.cache.Len()
	}
	return 0
}

// Evaluate reports whether item matches. Items that fail to evaluate do
// not match.
func (f *exprFilter) Evaluate(item plex.Metadata) bool {
	ok, err := f.Match(item)
	return err == nil && ok
}

// Match evaluates the filter and returns any runtime error
func (f *exprFilter) Match(item plex.Metadata) (bool, error) {
	result, err := expr.Run(f.program, newEnvironment(item, f.extra))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			ItemTitle:  item.Title,
			Err:        err,
		}
	}
	// AsBool guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// addHelperFunctions adds the item-independent helpers
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		if t.IsZero() {
			return -1
		}
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	}
	// String helpers
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// newEnvironment builds the evaluation environment for one item
func newEnvironment(item plex.Metadata, extra map[string]any) map[string]any {
	env := make(map[string]any, 48)
	addHelperFunctions(env)
	maps.Copy(env, extra)

	genres := tagNames(item.Genre)
	directors := tagNames(item.Director)
	actors := tagNames(item.Role)
	collections := tagNames(item.Collection)
	countries := tagNames(item.Country)

	env["hasGenre"] = hasFunc(genres)
	env["hasDirector"] = hasFunc(directors)
	env["hasActor"] = hasFunc(actors)
	env["hasCollection"] = hasFunc(collections)
	env["hasCountry"] = hasFunc(countries)

	env["Item"] = item
	env["Title"] = item.Title
	env["TitleSort"] = item.TitleSort
	env["OriginalTitle"] = item.OriginalTitle
	env["Type"] = item.Type
	env["Year"] = item.Year
	env["Studio"] = item.Studio
	env["ContentRating"] = item.ContentRating
	env["Rating"] = item.Rating
	env["AudienceRating"] = item.AudienceRating
	env["ViewCount"] = item.ViewCount
	env["Watched"] = item.Watched()
	env["Added"] = item.Added()
	env["LastViewed"] = unixTime(item.LastViewedAt)
	env["Runtime"] = int(item.Runtime().Minutes())
	env["Genres"] = genres
	env["Directors"] = directors
	env["Actors"] = actors
	env["Collections"] = collections
	env["Countries"] = countries

	return env
}

func tagNames(tags []plex.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Tag)
	}
	return names
}

// hasFunc returns a case-insensitive membership test over names
func hasFunc(names []string) func(string) bool {
	lower := make([]string, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}
	return func(name string) bool {
		return slices.Contains(lower, strings.ToLower(name))
	}
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
