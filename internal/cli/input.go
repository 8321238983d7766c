// Package cli handles cmd line input for querying the index interactively, mostly for DBG and testing
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/gallerysearch/internal/utils"
	"github.com/bastiangx/gallerysearch/pkg/search"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// maxShownIDs caps how many matched IDs are printed per query.
const maxShownIDs = 20

// InputHandler reads raw queries line by line and prints the matched entry IDs
// and the suggestions for the token being typed.
// Lines starting with ':' are commands (:stats, :rebuild).
type InputHandler struct {
	searcher     search.ISearcher
	suggestLimit int
	showIDs      bool
	requestCount int

	out       io.Writer
	termStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(searcher search.ISearcher, limit int, showIDs bool, out io.Writer) *InputHandler {
	r := lipgloss.NewRenderer(out)
	return &InputHandler{
		searcher:     searcher,
		suggestLimit: limit,
		showIDs:      showIDs,
		out:          out,
		termStyle:    r.NewStyle().Foreground(lipgloss.Color("75")),
		dimStyle:     r.NewStyle().Faint(true),
	}
}

// Start runs the loop until in is exhausted. EOF is a normal exit.
func (h *InputHandler) Start(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(h.out, "GallerySearch CLI [BETA]")
	fmt.Fprintln(h.out, "type a query and press Enter (Ctrl+C to exit):")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(h.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			h.handleCommand(ctx, strings.TrimSpace(line[1:]))
			continue
		}
		h.handleInput(line)
	}
}

// handleInput keeps trailing spaces, since they mean the last token is closed.
func (h *InputHandler) handleInput(raw string) {
	h.requestCount++

	start := time.Now()
	ids := h.searcher.MatchedEntryIDs(raw)
	matches := h.searcher.Suggest(raw, search.SuggestOptions{Limit: h.suggestLimit})
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for query '%s'", elapsed, raw)

	fmt.Fprintf(h.out, "Matched %s of %s entries\n",
		utils.FormatWithCommas(len(ids)), utils.FormatWithCommas(h.searcher.Len()))
	if h.showIDs {
		fmt.Fprintf(h.out, "  ids: %s\n", utils.JoinIDs(ids, maxShownIDs))
	}

	if len(matches) == 0 {
		fmt.Fprintln(h.out, h.dimStyle.Render("  no suggestions"))
		return
	}
	for i, m := range matches {
		sources := make([]string, len(m.Sources))
		for j, src := range m.Sources {
			sources[j] = src.String()
		}
		fmt.Fprintf(h.out, "%2d. %s %s (in context: %s, total: %s)\n",
			i+1,
			h.termStyle.Render(m.Term),
			h.dimStyle.Render("["+strings.Join(sources, ", ")+"]"),
			utils.FormatWithCommas(m.MatchedCount),
			utils.FormatWithCommas(m.GlobalCount))
	}
}

func (h *InputHandler) handleCommand(ctx context.Context, cmd string) {
	switch cmd {
	case "stats":
		fmt.Fprintf(h.out, "entries: %s, queries: %d\n", utils.FormatWithCommas(h.searcher.Len()), h.requestCount)
		if idx, ok := h.searcher.(interface{ Index() *search.Index }); ok {
			stats := idx.Index().CacheStats()
			fmt.Fprintf(h.out, "terms: %s, cached queries: %d, cached suggestions: %d\n",
				utils.FormatWithCommas(idx.Index().Catalogue().Len()), stats.Queries, stats.Suggestions)
		}
	case "rebuild":
		rebuilder, ok := h.searcher.(interface{ Rebuild(context.Context) error })
		if !ok {
			log.Warn("Rebuild not supported for this index")
			return
		}
		if err := rebuilder.Rebuild(ctx); err != nil {
			log.Errorf("Rebuild failed: %v", err)
			return
		}
		fmt.Fprintf(h.out, "rebuilt: %s entries\n", utils.FormatWithCommas(h.searcher.Len()))
	default:
		log.Warnf("Unknown command: %s", cmd)
	}
}
