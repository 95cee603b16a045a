package filter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/plexshelf/plex"
)

func testItems() []plex.Metadata {
	return []plex.Metadata{
		{
			RatingKey: "1",
			Title:     "Heat",
			Year:      1995,
			Rating:    8.3,
			ViewCount: 2,
			Duration:  int64(170 * time.Minute / time.Millisecond),
			AddedAt:   time.Now().AddDate(-2, 0, 0).Unix(),
			Genre:     []plex.Tag{{Tag: "Action"}, {Tag: "Crime"}},
			Director:  []plex.Tag{{Tag: "Michael Mann"}},
		},
		{
			RatingKey: "2",
			Title:     "Arrival",
			Year:      2016,
			Rating:    7.9,
			Duration:  int64(116 * time.Minute / time.Millisecond),
			AddedAt:   time.Now().AddDate(0, 0, -3).Unix(),
			Genre:     []plex.Tag{{Tag: "Drama"}, {Tag: "Sci-Fi"}},
		},
		{
			RatingKey: "3",
			Title:     "Hot Fuzz",
			Year:      2007,
			Rating:    7.8,
			ViewCount: 1,
			Genre:     []plex.Tag{{Tag: "Comedy"}, {Tag: "Action"}},
			Role:      []plex.Tag{{Tag: "Simon Pegg"}},
		},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "genre helper",
			expression: `hasGenre("action")`,
		},
		{
			name:        "empty expression",
			expression:  "  ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasGenre("unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown name",
			expression: `Popularity > 3`,
			wantErr:    true,
		},
		{
			name:       "non-boolean result",
			expression: `Year + 1`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `hasGenre("action") and Year > 2000 and Rating >= 7.5 and not Watched`,
		},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := compiler.Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.True(t, errors.As(err, &compErr))
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.expression), f.Expression())
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expression string
		want       []string
	}{
		{`hasGenre("action")`, []string{"Heat", "Hot Fuzz"}},
		{`"Drama" in Genres`, []string{"Arrival"}},
		{`Year < 2000 or Year > 2010`, []string{"Heat", "Arrival"}},
		{`Watched and ViewCount > 1`, []string{"Heat"}},
		{`not Watched`, []string{"Arrival"}},
		{`Runtime > 150`, []string{"Heat"}},
		{`Added > daysAgo(30)`, []string{"Arrival"}},
		{`daysSince(Added) > 365`, []string{"Heat"}},
		{`hasDirector("michael mann")`, []string{"Heat"}},
		{`hasActor("Simon Pegg")`, []string{"Hot Fuzz"}},
		{`startsWith(Title, "h") and Rating > 8`, []string{"Heat"}},
		{`contains(Title, "fuzz")`, []string{"Hot Fuzz"}},
	}

	compiler := NewCompiler()
	items := testItems()

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			matches, err := CompileAndSelect(context.Background(), compiler, tt.expression, items)
			require.NoError(t, err)

			titles := make([]string, 0, len(matches))
			for _, m := range matches {
				titles = append(titles, m.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestCustomFunctions(t *testing.T) {
	compiler := NewExprCompiler(withCustomFunctions(map[string]any{
		"classic": func(year int) bool { return year < 2000 },
	}))

	f, err := compiler.Compile(`classic(Year)`)
	require.NoError(t, err)

	items := testItems()
	assert.True(t, f.Evaluate(items[0]))
	assert.False(t, f.Evaluate(items[1]))
}

func TestEvaluationErrorDoesNotMatch(t *testing.T) {
	compiler := NewExprCompiler(withCustomFunctions(map[string]any{
		"boom": func() (bool, error) { return false, errors.New("boom") },
	}))

	f, err := compiler.Compile(`boom()`)
	require.NoError(t, err)

	item := testItems()[0]
	assert.False(t, f.Evaluate(item))

	_, err = f.(*exprFilter).Match(item)
	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "Heat", evalErr.ItemTitle)
}

func TestCompilerCache(t *testing.T) {
	compiler := NewExprCompiler(WithCache(2))

	first, err := compiler.Compile(`Year > 2000`)
	require.NoError(t, err)
	again, err := compiler.Compile(` Year > 2000 `)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, compiler.Size())

	_, err = compiler.Compile(`Year > 2001`)
	require.NoError(t, err)
	_, err = compiler.Compile(`Year > 2002`)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.Size())

	evicted, err := compiler.Compile(`Year > 2000`)
	require.NoError(t, err)
	assert.NotSame(t, first, evicted)

	compiler.Clear()
	assert.Zero(t, compiler.Size())

	assert.Zero(t, NewExprCompiler().Size())
}

func TestSelectHonoursContext(t *testing.T) {
	f, err := NewCompiler().Compile(`true`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Select(ctx, f, testItems())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLRUCache(t *testing.T) {
	c := newLRUCache[int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Put("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "b should be evicted as least recently used")

	c.Put("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Len())
}
