package api

// Domain error codes surfaced in error envelopes.
const (
	CodeSearchError   = "SEARCH_ERROR"
	CodeIndexNotReady = "INDEX_NOT_READY"
	CodeInvalidQuery  = "INVALID_QUERY"
)

// SearchError is a domain failure carrying a stable code for clients.
// Shards map it to HTTP 400; the coordinator treats INDEX_NOT_READY from
// a replica as that replica failing the request.
type SearchError struct {
	Code    string
	Message string
	Details any
}

func (e *SearchError) Error() string {
	return e.Message
}

// NewSearchError builds the generic search failure.
func NewSearchError(message string) *SearchError {
	if message == "" {
		message = "Search failed"
	}
	return &SearchError{Code: CodeSearchError, Message: message}
}

// ErrIndexNotReady reports a shard whose index has no documents or has
// not finished building.
func ErrIndexNotReady() *SearchError {
	return &SearchError{
		Code:    CodeIndexNotReady,
		Message: "The search index is not ready yet",
	}
}

// ErrInvalidQuery reports an unusable query or paging parameter.
func ErrInvalidQuery(details any) *SearchError {
	return &SearchError{
		Code:    CodeInvalidQuery,
		Message: "The search query is invalid",
		Details: details,
	}
}
