package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/gallerysearch/internal/logger"
	"github.com/bastiangx/gallerysearch/internal/utils"
	"github.com/bastiangx/gallerysearch/pkg/config"
	"github.com/bastiangx/gallerysearch/pkg/search"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// IndexProvider hands out the index to query. It is asked once per request,
// so a provider that swaps indexes takes effect on the next request.
type IndexProvider interface {
	Index() *search.Index
}

// Rebuilder is implemented by providers that can reload their entries.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// StaticIndex serves one fixed index.
type StaticIndex struct {
	Idx *search.Index
}

// Index returns the fixed index.
func (s StaticIndex) Index() *search.Index {
	return s.Idx
}

// Server handles the IPC for gallery search
type Server struct {
	provider     IndexProvider
	config       *config.Config
	configPath   string
	decoder      *msgpack.Decoder
	writer       *bufio.Writer
	encoder      *msgpack.Encoder
	logger       *log.Logger
	requestCount int
}

// NewServer creates a server on stdin/stdout.
// configPath may be empty, in which case config ops are not persisted.
func NewServer(provider IndexProvider, cfg *config.Config, configPath string) *Server {
	return NewServerWithIO(provider, cfg, configPath, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server on the given streams.
func NewServerWithIO(provider IndexProvider, cfg *config.Config, configPath string, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	enc.UseCompactInts(true)
	return &Server{
		provider:   provider,
		config:     cfg,
		configPath: configPath,
		decoder:    msgpack.NewDecoder(bufio.NewReader(r)),
		writer:     bw,
		encoder:    enc,
		logger:     logger.New("server"),
	}
}

// Start announces readiness and serves requests until the input ends or ctx
// is cancelled. A clean EOF returns nil.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting server")
	if err := s.send(StatusResponse{Status: "ready", Entries: s.provider.Index().Len()}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("Input closed, stopping")
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.logger.Errorf("Decoding request: %v", err)
			if err := s.sendError("", "invalid msgpack request", CodeBadRequest); err != nil {
				return err
			}
			continue
		}
		if err := s.handleRequest(ctx, req); err != nil {
			return err
		}
	}
}

// handleRequest dispatches one request. Only write failures are returned.
func (s *Server) handleRequest(ctx context.Context, req Request) error {
	s.requestCount++

	switch req.Op {
	case "search":
		return s.handleSearch(req)
	case "suggest":
		return s.handleSuggest(req)
	case "stats":
		return s.handleStats(req)
	case "rebuild":
		return s.handleRebuild(ctx, req)
	case "config":
		return s.handleConfig(req)
	case "":
		return s.sendError(req.ID, "missing 'op'", CodeBadRequest)
	default:
		return s.sendError(req.ID, fmt.Sprintf("unknown op: %s", req.Op), CodeUnknownOp)
	}
}

func (s *Server) validateQuery(req Request) (bool, error) {
	if n := utf8.RuneCountInString(req.Query); n > s.config.Server.MaxQueryLen {
		s.logger.Debugf("Query too long: %d runes", n)
		return false, s.sendError(req.ID,
			fmt.Sprintf("query exceeds %d characters", s.config.Server.MaxQueryLen), CodeQueryTooLarge)
	}
	if req.Limit < 0 {
		return false, s.sendError(req.ID, "limit must not be negative", CodeBadRequest)
	}
	return true, nil
}

func (s *Server) handleSearch(req Request) error {
	if ok, err := s.validateQuery(req); !ok {
		return err
	}

	start := time.Now()
	ids := s.provider.Index().MatchedEntryIDs(req.Query)
	elapsed := time.Since(start)

	count := len(ids)
	if req.Limit > 0 && len(ids) > req.Limit {
		ids = ids[:req.Limit]
	}
	s.logger.Debugf("search %q: %d matches in %v", req.Query, count, elapsed)

	return s.send(SearchResponse{
		ID:        req.ID,
		IDs:       ids,
		Count:     count,
		TimeTaken: elapsed.Microseconds(),
	})
}

func (s *Server) handleSuggest(req Request) error {
	if ok, err := s.validateQuery(req); !ok {
		return err
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.config.Server.DefaultLimit
	}
	if limit > s.config.Server.MaxLimit {
		limit = s.config.Server.MaxLimit
	}

	start := time.Now()
	matches := s.provider.Index().Suggest(req.Query, search.SuggestOptions{Limit: limit})
	elapsed := time.Since(start)

	ranks := utils.CreateRankList(len(matches))
	items := make([]SuggestionItem, len(matches))
	for i, m := range matches {
		sources := make([]string, len(m.Sources))
		for j, src := range m.Sources {
			sources[j] = src.String()
		}
		items[i] = SuggestionItem{
			Term:        m.Term,
			Sources:     sources,
			Matched:     m.MatchedCount,
			GlobalCount: m.GlobalCount,
			Rank:        ranks[i],
		}
	}
	s.logger.Debugf("suggest %q: %d suggestions in %v", req.Query, len(items), elapsed)

	return s.send(SuggestResponse{
		ID:          req.ID,
		Suggestions: items,
		Count:       len(items),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) handleStats(req Request) error {
	idx := s.provider.Index()
	resp := StatsResponse{
		ID:       req.ID,
		Entries:  idx.Len(),
		Terms:    idx.Catalogue().Len(),
		Requests: s.requestCount,
	}
	if counter, ok := s.provider.(interface{ Rebuilds() int64 }); ok {
		resp.Rebuilds = counter.Rebuilds()
	}
	return s.send(resp)
}

func (s *Server) handleRebuild(ctx context.Context, req Request) error {
	rebuilder, ok := s.provider.(Rebuilder)
	if !ok {
		return s.sendError(req.ID, "rebuild not supported", CodeUnsupported)
	}
	if err := rebuilder.Rebuild(ctx); err != nil {
		s.logger.Errorf("Rebuild failed: %v", err)
		return s.sendError(req.ID, err.Error(), CodeInternal)
	}
	return s.send(StatusResponse{ID: req.ID, Status: "ok", Entries: s.provider.Index().Len()})
}

func (s *Server) handleConfig(req Request) error {
	for _, v := range []*int{req.MaxLimit, req.MaxQueryLen, req.DefaultLimit} {
		if v != nil && *v <= 0 {
			return s.sendError(req.ID, "config values must be positive", CodeBadRequest)
		}
	}

	if s.configPath == "" {
		applyServerConfig(&s.config.Server, req)
	} else if err := s.config.Update(s.configPath, req.MaxLimit, req.MaxQueryLen, req.DefaultLimit); err != nil {
		s.logger.Errorf("Saving config: %v", err)
		return s.sendError(req.ID, err.Error(), CodeInternal)
	}
	return s.send(StatusResponse{ID: req.ID, Status: "ok", MaxLimit: s.config.Server.MaxLimit})
}

func applyServerConfig(server *config.ServerConfig, req Request) {
	if req.MaxLimit != nil {
		server.MaxLimit = *req.MaxLimit
	}
	if req.MaxQueryLen != nil {
		server.MaxQueryLen = *req.MaxQueryLen
	}
	if req.DefaultLimit != nil {
		server.DefaultLimit = *req.DefaultLimit
	}
	if server.DefaultLimit > server.MaxLimit {
		server.DefaultLimit = server.MaxLimit
	}
}

// send encodes one response and flushes it.
func (s *Server) send(resp any) error {
	if err := s.encoder.Encode(resp); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func (s *Server) sendError(id, message string, code int) error {
	return s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
