package parse

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/diag"
)

// Source is one document to parse as part of a ParseMany batch.
type Source struct {
	URI     string
	Content string
}

// Result pairs a Source's URI with the Story and diagnostics produced
// for it.
type Result struct {
	URI         string
	Story       *ast.Story
	Diagnostics []diag.Diagnostic
	Err         error
}

// ParseMany parses a batch of independent documents concurrently,
// bounded by the host's GOMAXPROCS, using golang.org/x/sync/errgroup the
// same way the teacher's sqlparser.ParseFilesystems fans out over a
// filesystem's files. Each Source is parsed in isolation — ParseMany
// does not resolve cross-document INCLUDEs; pass WithIncludeResolver to
// Parse (via opts) if that is needed for a given batch member.
func ParseMany(ctx context.Context, sources []Source, opts ...Option) []Result {
	results := make([]Result, len(sources))
	g, _ := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{URI: src.URI, Err: err}
				return nil
			}
			st, diags := Parse(src.Content, src.URI, opts...)
			results[i] = Result{URI: src.URI, Story: st, Diagnostics: diags}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
