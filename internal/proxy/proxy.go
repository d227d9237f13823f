// Package proxy serves the /api/* routes that sit between the browser and
// the backend. Routes pass method, body and bearer token through and mirror
// the backend's status. Blog payloads have their published flag translated
// on the way through, and the top-level list routes degrade to fallback
// content instead of surfacing backend failures.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"authorsite/internal/content"
	"authorsite/internal/httpx"
	"authorsite/internal/platform/backend"
	"authorsite/internal/platform/upload"
	"authorsite/internal/publish"
)

type Handler struct {
	backend          backend.Doer
	content          *content.Accessor
	uploader         upload.Uploader
	revalidateSecret string
}

func NewHandler(doer backend.Doer, accessor *content.Accessor, uploader upload.Uploader, revalidateSecret string) *Handler {
	return &Handler{
		backend:          doer,
		content:          accessor,
		uploader:         uploader,
		revalidateSecret: revalidateSecret,
	}
}

// route describes how one forwarded route treats payloads.
type route struct {
	// toBackend rewrites a boolean "published" in the request body.
	toBackend bool
	// fromBackend derives "published" on every record in the response.
	fromBackend bool
	// tags are expired from the content cache after a successful write.
	tags []content.Type
}

// forward sends r to path unchanged apart from the translations in rt and
// writes the backend's answer back with its status.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, path string, rt route) {
	body, err := requestBody(r, rt.toBackend)
	if errors.Is(err, publish.ErrInvalidFlag) {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body",
			[]httpx.ErrorDetail{{Field: "published", Message: publish.ErrInvalidFlag.Error()}})
		return
	}
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return
	}

	resp, err := h.backend.Do(r.Context(), backendRequest(r, path, body))
	if err != nil {
		backendFailure(w, r, path, err)
		return
	}

	out := resp.Body
	if resp.OK() {
		if rt.fromBackend {
			out = translateRecords(out)
		}
		if r.Method != http.MethodGet && h.content != nil {
			for _, tag := range rt.tags {
				h.content.Revalidate(string(tag))
			}
		}
	}
	httpx.WriteRaw(w, resp.StatusCode, out)
}

// list forwards a top-level list GET. Any failure is answered with 200 and
// the payload from degraded.
func (h *Handler) list(w http.ResponseWriter, r *http.Request, path string, rt route, degraded func() any) {
	resp, err := h.backend.Do(r.Context(), backend.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  r.URL.Query(),
		Token:  httpx.BearerToken(r),
	})
	var reason string
	switch {
	case err != nil:
		reason = err.Error()
	case !resp.OK():
		reason = http.StatusText(resp.StatusCode)
	case !json.Valid(resp.Body):
		reason = "invalid json"
	}
	if reason != "" {
		log.Printf("proxy list degraded path=%s reason=%q", path, reason)
		httpx.WriteJSON(w, http.StatusOK, degraded())
		return
	}

	out := resp.Body
	if rt.fromBackend {
		out = translateRecords(out)
	}
	httpx.WriteRaw(w, resp.StatusCode, out)
}

func backendRequest(r *http.Request, path string, body any) backend.Request {
	return backend.Request{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.Query(),
		Token:  httpx.BearerToken(r),
		Body:   body,
	}
}

func backendFailure(w http.ResponseWriter, r *http.Request, path string, err error) {
	if errors.Is(err, backend.ErrTimeout) {
		log.Printf("proxy backend timeout path=%s err=%v", path, err)
		httpx.JSONError(w, r, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", "Backend did not respond in time", nil)
		return
	}
	log.Printf("proxy backend error path=%s err=%v", path, err)
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reach backend", nil)
}

// requestBody reads the inbound body. Without translation it is passed on
// byte for byte; with it, the body must be a JSON object.
func requestBody(r *http.Request, translate bool) (any, error) {
	if r.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !translate {
		return raw, nil
	}
	payload, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	return publish.ToBackend(payload)
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("body is not a JSON object")
	}
	return payload, nil
}

// translateRecords derives "published" on every record in a response, where
// a record is any object carrying "status". Records may be the body itself,
// elements of a bare array, or nested one level under an envelope key.
func translateRecords(raw []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	out, err := json.Marshal(walkRecords(v, 0))
	if err != nil {
		return raw
	}
	return out
}

func walkRecords(v any, depth int) any {
	if depth > 3 {
		return v
	}
	switch t := v.(type) {
	case []any:
		for i := range t {
			t[i] = walkRecords(t[i], depth+1)
		}
	case map[string]any:
		if _, ok := t["status"].(string); ok {
			return publish.FromBackend(t)
		}
		for k, inner := range t {
			t[k] = walkRecords(inner, depth+1)
		}
	}
	return v
}
