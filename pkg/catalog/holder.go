package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/gallerysearch/pkg/search"
	"github.com/charmbracelet/log"
)

// EntrySource lists the entries an index is built from.
type EntrySource interface {
	Entries(ctx context.Context) ([]search.Entry, error)
}

// Holder owns the current index. Readers always see a complete index; a
// rebuild builds a new one aside and swaps the pointer, so the old index and
// its caches are dropped together.
type Holder struct {
	source  EntrySource
	opts    search.Options
	current atomic.Pointer[search.Index]
	// serializes rebuilds
	mu       sync.Mutex
	builtAt  atomic.Int64
	rebuilds atomic.Int64
}

// NewHolder starts with an empty index. Call Rebuild to load entries.
func NewHolder(source EntrySource, opts search.Options) *Holder {
	h := &Holder{source: source, opts: opts}
	h.current.Store(search.Build(nil, opts))
	return h
}

// Index returns the current index.
func (h *Holder) Index() *search.Index {
	return h.current.Load()
}

// Rebuild loads entries from the source and swaps in a fresh index. On error
// the current index stays in place.
func (h *Holder) Rebuild(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	entries, err := h.source.Entries(ctx)
	if err != nil {
		return fmt.Errorf("loading entries for rebuild: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	idx := search.Build(entries, h.opts)
	h.current.Store(idx)
	h.builtAt.Store(time.Now().UnixNano())
	h.rebuilds.Add(1)
	log.Debugf("Index rebuilt with %d entries in %v", idx.Len(), time.Since(start))
	return nil
}

// Rebuilds returns how many rebuilds have completed.
func (h *Holder) Rebuilds() int64 {
	return h.rebuilds.Load()
}

// BuiltAt returns when the current index was built, zero before the first rebuild.
func (h *Holder) BuiltAt() time.Time {
	ns := h.builtAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// MatchedEntryIDs evaluates raw against the current index.
func (h *Holder) MatchedEntryIDs(raw string) []uint32 {
	return h.Index().MatchedEntryIDs(raw)
}

// Suggest ranks suggestions against the current index.
func (h *Holder) Suggest(raw string, opts search.SuggestOptions) []search.Match {
	return h.Index().Suggest(raw, opts)
}

// Len returns the size of the current index.
func (h *Holder) Len() int {
	return h.Index().Len()
}

var _ search.ISearcher = (*Holder)(nil)
