package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evently/cdc-pipeline/internal/cdc"
)

// Namespace for deriving index object ids from origin row ids. Fixed so
// every instance maps the same row to the same object.
var objectNamespace = uuid.MustParse("8c7a24b6-1f6f-4f4e-9a3d-2f1f6f0f5b21")

type weaviateObject struct {
	Class      string               `json:"class"`
	ID         string               `json:"id"`
	Properties map[string]cdc.Value `json:"properties"`
}

// WeaviateClient upserts event documents into the external search index
// over its REST surface. Identity is a pure function of the origin row
// id, so a duplicate delivery overwrites the same document instead of
// creating a second one.
type WeaviateClient struct {
	baseURL    string
	class      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWeaviateClient(baseURL, class string, logger *slog.Logger) *WeaviateClient {
	return &WeaviateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		class:   class,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ObjectID derives the stable index object id for an origin row.
func (w *WeaviateClient) ObjectID(sourceID int64) string {
	return uuid.NewSHA1(objectNamespace, []byte(strconv.FormatInt(sourceID, 10))).String()
}

// Upsert writes the document for one origin row, last-write-wins.
func (w *WeaviateClient) Upsert(ctx context.Context, properties map[string]cdc.Value, sourceID int64) error {
	objectID := w.ObjectID(sourceID)

	payload, err := json.Marshal(weaviateObject{
		Class:      w.class,
		ID:         objectID,
		Properties: properties,
	})
	if err != nil {
		return fmt.Errorf("marshaling index document: %w", err)
	}

	url := fmt.Sprintf("%s/v1/objects/%s/%s", w.baseURL, w.class, objectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upserting document for source id %d: %w", sourceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Keep an excerpt of the response for the log, never the whole body.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("index rejected document for source id %d: status %d: %s",
			sourceID, resp.StatusCode, excerpt)
	}

	w.logger.Info("document indexed",
		"source_id", sourceID,
		"object_id", objectID,
		"class", w.class,
	)
	return nil
}
