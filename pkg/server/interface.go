/*
Package server implements msgpack IPC for gallery search.

The server reads a stream of msgpack maps from stdin and writes one msgpack
map per request to stdout. Requests are processed synchronously, in order,
with timing info (microseconds) included in responses. Logs go to stderr.

# IPC

On start the server writes a status message:

	{"status": "ready", "entries": 120}

Every request carries an ID, an op and op-specific fields:

	{"id": "q1", "op": "search", "q": "alice | bob !sketch"}
	{"id": "q2", "op": "suggest", "q": "alice bl", "l": 8}
	{"id": "q3", "op": "stats"}
	{"id": "q4", "op": "rebuild"}
	{"id": "q5", "op": "config", "max_limit": 32}

A search returns the matching entry IDs in ascending order. l, when set,
caps how many IDs are sent; c is always the full match count:

	{"id": "q1", "ids": [3, 7, 12], "c": 3, "t": 85}

A suggest returns ranked terms for the token being typed at the end of q.
n is the number of entries that would match (or, for a !negated token, be
removed) under the current context, g the catalogue-wide count:

	{"id": "q2", "s": [{"w": "Blue Hair", "src": ["Keyword"], "n": 4, "g": 9, "r": 1}], "c": 1, "t": 40}

Failures come back as:

	{"id": "q2", "e": "query exceeds 512 characters", "c": 413}

# Message Types

Request covers every op. SearchResponse, SuggestResponse, StatsResponse and
StatusResponse are the success payloads; ErrorResponse reports a rejected
request. A malformed msgpack object is answered with an ErrorResponse
carrying an empty ID and the stream continues with the next object.
*/
package server

// Request is one client message.
type Request struct {
	ID    string `msgpack:"id"`
	Op    string `msgpack:"op"`
	Query string `msgpack:"q"`
	Limit int    `msgpack:"l,omitempty"`

	// config op only
	MaxLimit     *int `msgpack:"max_limit,omitempty"`
	MaxQueryLen  *int `msgpack:"max_query_len,omitempty"`
	DefaultLimit *int `msgpack:"default_limit,omitempty"`
}

// SearchResponse lists the matched entry IDs.
type SearchResponse struct {
	ID        string   `msgpack:"id"`
	IDs       []uint32 `msgpack:"ids"`
	Count     int      `msgpack:"c"`
	TimeTaken int64    `msgpack:"t"`
}

// SuggestionItem is one ranked suggestion.
type SuggestionItem struct {
	Term        string   `msgpack:"w"`
	Sources     []string `msgpack:"src"`
	Matched     int      `msgpack:"n"`
	GlobalCount int      `msgpack:"g"`
	Rank        uint16   `msgpack:"r"`
}

// SuggestResponse carries suggestions for the in-progress token.
type SuggestResponse struct {
	ID          string           `msgpack:"id"`
	Suggestions []SuggestionItem `msgpack:"s"`
	Count       int              `msgpack:"c"`
	TimeTaken   int64            `msgpack:"t"`
}

// StatsResponse describes the current index.
type StatsResponse struct {
	ID       string `msgpack:"id"`
	Entries  int    `msgpack:"entries"`
	Terms    int    `msgpack:"terms"`
	Rebuilds int64  `msgpack:"rebuilds,omitempty"`
	Requests int    `msgpack:"requests"`
}

// StatusResponse acknowledges startup, rebuild and config ops.
type StatusResponse struct {
	ID       string `msgpack:"id,omitempty"`
	Status   string `msgpack:"status"`
	Entries  int    `msgpack:"entries,omitempty"`
	MaxLimit int    `msgpack:"max_limit,omitempty"`
}

// ErrorResponse holds basic error information for a rejected request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

const (
	CodeBadRequest    = 400
	CodeUnknownOp     = 404
	CodeQueryTooLarge = 413
	CodeInternal      = 500
	CodeUnsupported   = 501
)
