// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package solr implements source.DocumentSource against a Solr select
// API. Pages are sorted by id so offset pagination is stable.
package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/markit/source"
)

const defaultTimeout = 60 * time.Second

// Client fetches document pages from a Solr instance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ source.DocumentSource = (*Client)(nil)

// New creates a Client for the Solr instance at baseURL
// (e.g. http://localhost:8983/solr).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default().With("component", "solr-source"),
	}
}

type selectResponse struct {
	Response struct {
		NumFound int                          `json:"numFound"`
		Docs     []map[string]json.RawMessage `json:"docs"`
	} `json:"response"`
}

// FetchBatch runs a select query ordered by id and returns the page at
// (offset, limit). Documents whose field is missing or empty are
// dropped from the result; the raw Solr row count is returned alongside
// so callers can tell a page with holes from the end of the collection.
func (c *Client) FetchBatch(ctx context.Context, collection, field string, offset, limit int, filter string) ([]source.Document, int, error) {
	query := filter
	if query == "" {
		query = "*:*"
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("fl", "id,"+field)
	params.Set("start", strconv.Itoa(offset))
	params.Set("rows", strconv.Itoa(limit))
	params.Set("sort", "id asc")
	params.Set("wt", "json")

	reqURL := fmt.Sprintf("%s/%s/select?%s", c.baseURL, url.PathEscape(collection), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("solr select: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: solr select: %v", source.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, 0, fmt.Errorf("%w: %s", source.ErrCollectionNotFound, collection)
	}
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("%w: solr select: status %d: %s", source.ErrTransient, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("solr select: status %d: %s", resp.StatusCode, string(body))
	}

	var result selectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("solr select: decode: %w", err)
	}

	docs := make([]source.Document, 0, len(result.Response.Docs))
	for _, raw := range result.Response.Docs {
		id := decodeFieldValue(raw["id"])
		text := decodeFieldValue(raw[field])
		if id == "" {
			continue
		}
		if text == "" {
			c.logger.Debug("document missing field, skipping", "doc", id, "field", field)
			continue
		}
		docs = append(docs, source.Document{ID: id, Text: text})
	}

	rows := len(result.Response.Docs)
	c.logger.Debug("fetched page",
		"collection", collection, "offset", offset, "requested", limit,
		"rows", rows, "returned", len(docs))
	return docs, rows, nil
}

// decodeFieldValue accepts either a plain string or a multi-valued
// string array, which Solr returns for multiValued fields. Array values
// are joined with newlines.
func decodeFieldValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, "\n")
	}
	return ""
}

// Exists pings the collection. A 404 means the collection is absent;
// transport failures are reported as transient errors.
func (c *Client) Exists(ctx context.Context, collection string) (bool, error) {
	reqURL := fmt.Sprintf("%s/%s/admin/ping?wt=json", c.baseURL, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: solr ping: %v", source.ErrTransient, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("solr ping: status %d", resp.StatusCode)
	}
	return true, nil
}
