//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Field is one field of an index definition.
type Field struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key,omitempty"`
	Searchable bool   `json:"searchable"`
	Filterable bool   `json:"filterable"`
	Sortable   bool   `json:"sortable"`
	Facetable  bool   `json:"facetable"`
}

// Schema is an index definition.
type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// DefaultSchema returns the index definition for sales documents.
func DefaultSchema(name string) Schema {
	str := func(n string) Field { return Field{Name: n, Type: "Edm.String", Filterable: true} }
	date := func(n string) Field {
		return Field{Name: n, Type: "Edm.DateTimeOffset", Filterable: true, Sortable: true}
	}
	num := func(n string) Field { return Field{Name: n, Type: "Edm.Double", Filterable: true, Sortable: true} }

	region := str("region")
	region.Facetable = true

	return Schema{
		Name: name,
		Fields: []Field{
			{Name: "id", Type: "Edm.String", Key: true},
			{Name: "title", Type: "Edm.String", Searchable: true},
			{Name: "content", Type: "Edm.String", Searchable: true},
			{Name: "category", Type: "Edm.String", Filterable: true, Sortable: true, Facetable: true},
			date("timestamp"),
			str("metadata"),
			str("customer_id"),
			str("product_code"),
			region,
			str("sales_rep"),
			str("data_source"),
			num("sales_amount"),
			num("sales_quantity"),
			str("order_number"),
			date("sales_date"),
		},
	}
}

// DocumentError describes one document the service rejected.
type DocumentError struct {
	Key     string
	Message string
}

// UploadResult summarizes one upload batch.
type UploadResult struct {
	Succeeded int
	Failed    []DocumentError
}

// Index is the search service surface used by the indexer.
type Index interface {
	CreateOrUpdateIndex(ctx context.Context, schema Schema) error
	Upload(ctx context.Context, docs []Document) (UploadResult, error)
	Clear(ctx context.Context) (int, error)
}

// DefaultAPIVersion is the REST API version sent with every request.
const DefaultAPIVersion = "2023-11-01"

const pageSize = 1000

// Client talks to an Azure AI Search service over its REST API.
type Client struct {
	endpoint   string
	apiKey     string
	index      string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a client for one index.
func NewClient(endpoint, apiKey, index, apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		index:      index,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search service returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) url(path string) string {
	return c.endpoint + path + "?api-version=" + url.QueryEscape(c.apiVersion)
}

// do sends a JSON request and decodes a JSON response into result when
// result is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, result any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// CreateOrUpdateIndex creates the index or replaces its definition.
func (c *Client) CreateOrUpdateIndex(ctx context.Context, schema Schema) error {
	if schema.Name == "" {
		schema.Name = c.index
	}
	_, err := c.do(ctx, http.MethodPut, "/indexes/"+url.PathEscape(schema.Name), schema, nil)
	return err
}

type uploadAction struct {
	Action string `json:"@search.action"`
	Document
}

type deleteAction struct {
	Action string `json:"@search.action"`
	ID     string `json:"id"`
}

type indexingResult struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"value"`
}

func (c *Client) docsPath(op string) string {
	return "/indexes/" + url.PathEscape(c.index) + "/docs/" + op
}

// Upload sends one batch of documents. Per-document rejections are returned
// in the result rather than as an error.
func (c *Client) Upload(ctx context.Context, docs []Document) (UploadResult, error) {
	actions := make([]uploadAction, len(docs))
	for i, d := range docs {
		actions[i] = uploadAction{Action: "upload", Document: d}
	}

	// A 207 response carries per-document status for a partial success.
	var res indexingResult
	if _, err := c.do(ctx, http.MethodPost, c.docsPath("index"), map[string]any{"value": actions}, &res); err != nil {
		return UploadResult{}, err
	}
	return summarize(res), nil
}

func summarize(res indexingResult) UploadResult {
	var out UploadResult
	for _, v := range res.Value {
		if v.Status {
			out.Succeeded++
			continue
		}
		out.Failed = append(out.Failed, DocumentError{Key: v.Key, Message: v.ErrorMessage})
	}
	return out
}

// Clear deletes every document in the index and returns how many were
// removed.
func (c *Client) Clear(ctx context.Context) (int, error) {
	var ids []string
	for skip := 0; ; skip += pageSize {
		var page struct {
			Value []struct {
				ID string `json:"id"`
			} `json:"value"`
		}
		req := map[string]any{"search": "*", "select": "id", "top": pageSize, "skip": skip}
		if _, err := c.do(ctx, http.MethodPost, c.docsPath("search"), req, &page); err != nil {
			return 0, err
		}
		for _, v := range page.Value {
			ids = append(ids, v.ID)
		}
		if len(page.Value) < pageSize {
			break
		}
	}

	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))
		actions := make([]deleteAction, 0, end-start)
		for _, id := range ids[start:end] {
			actions = append(actions, deleteAction{Action: "delete", ID: id})
		}
		if _, err := c.do(ctx, http.MethodPost, c.docsPath("index"), map[string]any{"value": actions}, nil); err != nil {
			return start, err
		}
	}
	return len(ids), nil
}
