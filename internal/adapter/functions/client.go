// Package functions implements the dispatch port by POSTing handler
// payloads to the /functions/v1 endpoints, fire-and-forget.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/logger"
	"github.com/Strob0t/PropExtract/internal/port/dispatch"
)

var _ dispatch.Invoker = (*Client)(nil)

// Client invokes remote handlers over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	wg         sync.WaitGroup
}

// NewClient creates a client for the functions base URL. timeout bounds
// one whole handler run, since the endpoints answer after completion.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Invoke starts the request in the background and returns once the payload
// is encoded. The response is only logged.
func (c *Client) Invoke(ctx context.Context, kind task.Kind, payload any) error {
	name, ok := dispatch.HandlerNames[kind]
	if !ok {
		return fmt.Errorf("no handler for kind %q", kind)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	reqID := logger.RequestID(ctx)
	bg := context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.post(bg, name, reqID, body)
	}()
	return nil
}

// Wait blocks until every in-flight invocation has returned.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) post(ctx context.Context, name, reqID string, body []byte) {
	log := slog.With("handler", name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		log.ErrorContext(ctx, "create invocation request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WarnContext(ctx, "invocation failed", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		log.WarnContext(ctx, "invocation returned error", "status", resp.StatusCode, "body", string(data))
		return
	}
	log.DebugContext(ctx, "invocation finished", "status", resp.StatusCode)
}
