// Package loam loads a checkout flow from a directory of markdown step
// documents, one file per step. The frontmatter declares placement,
// conditions, and data rules; the markdown body is the customer-facing step
// content rendered by the CLI.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"

	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/flow"
)

// Loader adapts a Loam repository of step documents into a flow Builder.
type Loader struct {
	Repo *loam.TypedRepository[StepMetadata]
}

// New creates a Loader over an already-initialized typed repository.
func New(repo *loam.TypedRepository[StepMetadata]) *Loader {
	return &Loader{Repo: repo}
}

// Open initializes a Loam repository at path and returns a Loader over it.
// Strict mode keeps numeric frontmatter types consistent (json.Number), and
// read-only mode avoids Loam's sandbox behavior; the loader never writes.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	return New(loam.NewTypedRepository[StepMetadata](repo)), nil
}

// Builder assembles a flow Builder from every step document in the
// repository. The documents define the whole flow: the builder starts empty,
// and appended steps are registered in (order, name) order.
func (l *Loader) Builder(ctx context.Context) (*flow.Builder, error) {
	docs, err := l.listDocs(ctx)
	if err != nil {
		return nil, err
	}

	b := flow.NewBuilder()
	for _, d := range docs {
		pos, err := position(d.meta)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", d.name, err)
		}
		cond, err := flow.ParseCondition(d.meta.Condition)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", d.name, err)
		}
		if err := b.Add(d.name, pos, cond); err != nil {
			return nil, err
		}
		if len(d.meta.Permitted) > 0 {
			b.Permit(d.name, d.meta.Permitted...)
		}
		if d.meta.Requires != "" {
			pred, err := flow.ParseCondition(d.meta.Requires)
			if err != nil {
				return nil, fmt.Errorf("step %s: requires: %w", d.name, err)
			}
			b.Require(d.name, pred)
		}
		if d.meta.RetreatRestricted != "" {
			pred, err := flow.ParseCondition(d.meta.RetreatRestricted)
			if err != nil {
				return nil, fmt.Errorf("step %s: retreat_restricted: %w", d.name, err)
			}
			b.RestrictRetreat(d.name, pred)
		}
	}

	return b, nil
}

// Content returns the markdown body of a step document.
func (l *Loader) Content(ctx context.Context, step string) (string, error) {
	doc, err := l.Repo.Get(ctx, step)
	if err != nil {
		return "", fmt.Errorf("loam get failed for %s: %w", step, err)
	}
	return doc.Content, nil
}

// Steps lists step names in the order Builder registers them.
func (l *Loader) Steps(ctx context.Context) ([]string, error) {
	docs, err := l.listDocs(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.name)
	}
	return names, nil
}

// Watch emits the ID of every changed step document until ctx is canceled.
// Hosts reload the flow by rebuilding the Builder on each event.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

type stepDoc struct {
	name string
	meta StepMetadata
}

func (l *Loader) listDocs(ctx context.Context) ([]stepDoc, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	out := make([]stepDoc, 0, len(docs))
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		name := trimExtension(rawID)

		if existing, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: step %q is defined in both %q and %q", name, existing, doc.ID)
		}
		seen[name] = doc.ID
		out = append(out, stepDoc{name: name, meta: doc.Data})
	}

	sort.SliceStable(out, func(i, j int) bool {
		oi, _ := toInt(out[i].meta.Order)
		oj, _ := toInt(out[j].meta.Order)
		if oi != oj {
			return oi < oj
		}
		return out[i].name < out[j].name
	})

	return out, nil
}

func position(meta StepMetadata) (domain.Position, error) {
	at, hasAt := toInt(meta.At)

	set := 0
	pos := domain.Append()
	if meta.Before != "" {
		set++
		pos = domain.Before(meta.Before)
	}
	if meta.After != "" {
		set++
		pos = domain.After(meta.After)
	}
	if hasAt {
		set++
		pos = domain.At(at)
	}
	if set > 1 {
		return pos, fmt.Errorf("before, after, and at are mutually exclusive")
	}
	return pos, nil
}

// toInt normalizes the loose numeric frontmatter values (json.Number in
// strict mode, int from JSON adapters, string from hand-written YAML).
func toInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	var n int
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &n,
	})
	if err != nil {
		return 0, false
	}
	if err := dec.Decode(v); err != nil {
		return 0, false
	}
	return n, true
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
