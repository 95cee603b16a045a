package filter

import (
	"context"

	"github.com/s0up4200/plexshelf/plex"
)

// Select returns the items f matches, preserving order. It stops early with
// the context's error when ctx is done.
func Select(ctx context.Context, f Filter, items []plex.Metadata) ([]plex.Metadata, error) {
	matches := make([]plex.Metadata, 0, len(items))
	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Evaluate(items[i]) {
			matches = append(matches, items[i])
		}
	}
	return matches, nil
}

// CompileAndSelect compiles expression with c and applies it to items
func CompileAndSelect(ctx context.Context, c Compiler, expression string, items []plex.Metadata) ([]plex.Metadata, error) {
	f, err := c.Compile(expression)
	if err != nil {
		return nil, err
	}
	return Select(ctx, f, items)
}
