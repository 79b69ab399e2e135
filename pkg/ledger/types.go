package ledger

import "context"

// Client is the boundary the synchronizer and health checks consume. The
// production implementation speaks JSON-RPC over HTTP; tests substitute fakes.
type Client interface {
	// GetObject resolves one object identifier into its current content.
	GetObject(ctx context.Context, id string) (*ObjectResult, error)
	// MultiGetObjects hydrates a batch in one call. Implementations that do
	// not support batching return ErrBulkUnsupported so callers can fall back
	// to per-object reads.
	MultiGetObjects(ctx context.Context, ids []string) ([]*ObjectResult, error)
	// QueryEvents returns every event of the given fully-qualified move event
	// type, in the order the ledger reports them.
	QueryEvents(ctx context.Context, eventType string) ([]Event, error)
	// Ping verifies the RPC endpoint is reachable.
	Ping(ctx context.Context) error
}

// Event is one entry from the ledger's append-only event log.
type Event struct {
	Type        string         `json:"type"`
	ParsedJSON  map[string]any `json:"parsedJson"`
	TimestampMs string         `json:"timestampMs"`
	TxDigest    string         `json:"txDigest"`
}

// StringField pulls a string payload field out of the event, empty when the
// field is absent or not a string.
func (e Event) StringField(name string) string {
	if e.ParsedJSON == nil {
		return ""
	}
	if s, ok := e.ParsedJSON[name].(string); ok {
		return s
	}
	return ""
}

// ObjectResult is the raw read of one ledger object. A read that resolved to
// nothing (deleted, pruned, foreign version) carries Error instead of Data.
type ObjectResult struct {
	Data  *ObjectData  `json:"data"`
	Error *ObjectError `json:"error"`
}

type ObjectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Digest   string         `json:"digest"`
	Content  *ObjectContent `json:"content"`
}

type ObjectContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

type ObjectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}
