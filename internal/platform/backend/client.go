package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"authorsite/internal/httpx"

	"golang.org/x/time/rate"
)

// ErrTimeout is returned when the backend does not answer within the
// client's deadline.
var ErrTimeout = errors.New("backend request timed out")

// Doer sends one request to the backend. Implementations never retry.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Token  string
	// Body is JSON-encoded unless it is already a []byte or json.RawMessage.
	Body any
}

// ItemPath joins base and a single record id, escaping the id so it can
// never add segments or a query to the backend URL.
func ItemPath(base, id string) string {
	seg := url.PathEscape(id)
	if id == "." || id == ".." {
		seg = strings.ReplaceAll(id, ".", "%2E")
	}
	return base + "/" + seg
}

type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) Decode(target any) error {
	return json.Unmarshal(r.Body, target)
}

// APIError is a non-2xx answer from the backend. Message is the backend's
// own wording when it provided one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
}

// Err converts a non-2xx response into an *APIError.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &APIError{StatusCode: r.StatusCode, Message: MessageFrom(r.Body, http.StatusText(r.StatusCode))}
}

// MessageFrom pulls a human readable message out of a backend error body.
func MessageFrom(body []byte, def string) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return def
	}
	if payload.Message != "" {
		return payload.Message
	}
	switch e := payload.Error.(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if m, ok := e["message"].(string); ok && m != "" {
			return m
		}
	}
	return def
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	limiter    *rate.Limiter
}

func NewClient(baseURL string, timeout time.Duration, rps int) *Client {
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.classify(ctx, err)
	}

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(httpx.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/books/featured"})
	return err
}

func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return err
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(b) == 0 {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	case json.RawMessage:
		if len(b) == 0 {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode backend body: %w", err)
		}
		return bytes.NewReader(encoded), nil
	}
}
