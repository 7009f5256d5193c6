package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeService is a minimal in-memory search service.
type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
	docs     []string
	rejected map[string]bool
	failPath string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})

	if r.Header.Get("api-key") != "secret" || r.URL.Query().Get("api-version") != DefaultAPIVersion {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if r.URL.Path == f.failPath {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"service busy"}}`)
		return
	}

	switch r.URL.Path {
	case "/indexes/sales":
		w.WriteHeader(http.StatusCreated)
	case "/indexes/sales/docs/search":
		skip := int(body["skip"].(float64))
		top := int(body["top"].(float64))
		end := min(skip+top, len(f.docs))
		var page []map[string]string
		for _, id := range f.docs[min(skip, end):end] {
			page = append(page, map[string]string{"id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"value": page})
	case "/indexes/sales/docs/index":
		var results []map[string]any
		status := http.StatusOK
		for _, a := range body["value"].([]any) {
			action := a.(map[string]any)
			id := action["id"].(string)
			switch action["@search.action"] {
			case "delete":
				f.remove(id)
				results = append(results, map[string]any{"key": id, "status": true})
			default:
				if f.rejected[id] {
					status = http.StatusMultiStatus
					results = append(results, map[string]any{"key": id, "status": false, "errorMessage": "invalid"})
					continue
				}
				f.docs = append(f.docs, id)
				results = append(results, map[string]any{"key": id, "status": true})
			}
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"value": results})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeService) remove(id string) {
	for i, d := range f.docs {
		if d == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return
		}
	}
}

func newTestClient(t *testing.T, svc *fakeService) *Client {
	t.Helper()
	server := httptest.NewServer(svc)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", "secret", "sales", "").WithHTTPClient(server.Client())
}

func TestClientCreateOrUpdateIndex(t *testing.T) {
	svc := &fakeService{}
	c := newTestClient(t, svc)

	require.NoError(t, c.CreateOrUpdateIndex(context.Background(), DefaultSchema("sales")))

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/indexes/sales", req.Path)
	assert.Equal(t, "sales", req.Body["name"])
	fields := req.Body["fields"].([]any)
	assert.Len(t, fields, 15)
	assert.Equal(t, true, fields[0].(map[string]any)["key"])
}

func TestClientUploadPartialFailure(t *testing.T) {
	svc := &fakeService{rejected: map[string]bool{"C2": true}}
	c := newTestClient(t, svc)

	res, err := c.Upload(context.Background(), []Document{{ID: "C1"}, {ID: "C2"}, {ID: "C3"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, DocumentError{Key: "C2", Message: "invalid"}, res.Failed[0])
	assert.Equal(t, []string{"C1", "C3"}, svc.docs)
}

func TestClientClearPagesThroughIndex(t *testing.T) {
	svc := &fakeService{}
	for i := 0; i < 1500; i++ {
		svc.docs = append(svc.docs, fmt.Sprintf("D%d", i))
	}
	c := newTestClient(t, svc)

	n, err := c.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1500, n)
	assert.Empty(t, svc.docs)

	var searches, deletes int
	for _, r := range svc.requests {
		switch r.Path {
		case "/indexes/sales/docs/search":
			searches++
		case "/indexes/sales/docs/index":
			deletes++
		}
	}
	assert.Equal(t, 2, searches)
	assert.Equal(t, 2, deletes)
}

func TestClientClearEmptyIndex(t *testing.T) {
	svc := &fakeService{}
	c := newTestClient(t, svc)

	n, err := c.Clear(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, svc.requests, 1)
}

func TestClientAPIError(t *testing.T) {
	svc := &fakeService{failPath: "/indexes/sales"}
	c := newTestClient(t, svc)

	err := c.CreateOrUpdateIndex(context.Background(), DefaultSchema("sales"))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "service busy", apiErr.Message)
}

func TestClientRejectsBadKey(t *testing.T) {
	svc := &fakeService{}
	server := httptest.NewServer(svc)
	defer server.Close()

	c := NewClient(server.URL, "wrong", "sales", "")
	_, err := c.Clear(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
