// Copyright 2025, the fabdeploy authors.  All rights reserved.

package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/fabdeploy/fabdeploy/pkg/resource"
	"github.com/fabdeploy/fabdeploy/pkg/util/contract"
	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// DefaultEndpoint is the platform's REST API base URL.
const DefaultEndpoint = "https://api.fabric.microsoft.com/v1"

// DefaultScope is the OAuth scope requested for platform tokens.
const DefaultScope = "https://api.fabric.microsoft.com/.default"

// long-running operations are polled at most this long before giving up.
const operationTimeout = 10 * time.Minute

// HTTPClient talks to one workspace over the platform's REST API.
type HTTPClient struct {
	endpoint    string
	workspaceID string
	tokens      TokenSource
	http        *http.Client
	pollFloor   time.Duration // minimum delay between operation polls.
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client bound to a single workspace.
func NewHTTPClient(endpoint, workspaceID string, tokens TokenSource) *HTTPClient {
	contract.Require(workspaceID != "", "workspaceID")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPClient{
		endpoint:    endpoint,
		workspaceID: workspaceID,
		tokens:      tokens,
		http:        &http.Client{Timeout: 120 * time.Second},
		pollFloor:   2 * time.Second,
	}
}

type item struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
}

type itemList struct {
	Value             []item `json:"value"`
	ContinuationToken string `json:"continuationToken,omitempty"`
}

// Exists lists the workspace's items of the given type and matches on display name.
func (c *HTTPClient) Exists(ctx context.Context, t resource.Type, displayName string) (string, bool, error) {
	uri := fmt.Sprintf("%s/workspaces/%s/items?type=%s", c.endpoint, c.workspaceID, t)
	for {
		resp, err := c.do(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return "", false, err
		}
		var list itemList
		if err := json.Unmarshal(resp.body, &list); err != nil {
			return "", false, errors.Wrap(err, "decoding item list")
		}
		for _, it := range list.Value {
			if it.DisplayName == displayName {
				return it.ID, true, nil
			}
		}
		if list.ContinuationToken == "" {
			return "", false, nil
		}
		uri = fmt.Sprintf("%s/workspaces/%s/items?type=%s&continuationToken=%s",
			c.endpoint, c.workspaceID, t, url.QueryEscape(list.ContinuationToken))
	}
}

type definitionPart struct {
	Path        string `json:"path"`
	Payload     string `json:"payload"`
	PayloadType string `json:"payloadType"`
}

type itemDefinition struct {
	Format string           `json:"format,omitempty"`
	Parts  []definitionPart `json:"parts"`
}

type createRequest struct {
	DisplayName string          `json:"displayName"`
	Type        string          `json:"type"`
	Definition  *itemDefinition `json:"definition,omitempty"`
}

// Create creates a new artifact and returns its remote ID.  The platform answers simple creates
// synchronously and definition-bearing ones with a long-running operation, which is polled to
// completion before the new item's ID is resolved by display name.
func (c *HTTPClient) Create(ctx context.Context, t resource.Type, displayName string, definition []byte) (string, error) {
	req := createRequest{DisplayName: displayName, Type: string(t)}
	if len(definition) > 0 {
		req.Definition = wrapDefinition(t, definition)
	}
	payload, err := json.Marshal(req)
	contract.AssertNoError(err)

	uri := fmt.Sprintf("%s/workspaces/%s/items", c.endpoint, c.workspaceID)
	resp, err := c.do(ctx, http.MethodPost, uri, payload)
	if err != nil {
		return "", err
	}

	if resp.status == http.StatusAccepted {
		if err := c.awaitOperation(ctx, resp.location, resp.retryAfter); err != nil {
			return "", err
		}
		id, found, err := c.Exists(ctx, t, displayName)
		if err != nil {
			return "", err
		}
		if !found {
			return "", errors.Errorf("create of %s '%s' completed but the item was not found", t, displayName)
		}
		return id, nil
	}

	var created item
	if err := json.Unmarshal(resp.body, &created); err != nil {
		return "", errors.Wrap(err, "decoding create response")
	}
	return created.ID, nil
}

// Update replaces an existing artifact's definition wholesale.
func (c *HTTPClient) Update(ctx context.Context, remoteID string, t resource.Type, definition []byte) error {
	body := struct {
		Definition *itemDefinition `json:"definition"`
	}{Definition: wrapDefinition(t, definition)}
	payload, err := json.Marshal(body)
	contract.AssertNoError(err)

	uri := fmt.Sprintf("%s/workspaces/%s/items/%s/updateDefinition?updateMetadata=true",
		c.endpoint, c.workspaceID, remoteID)
	resp, err := c.do(ctx, http.MethodPost, uri, payload)
	if err != nil {
		return err
	}
	if resp.status == http.StatusAccepted {
		return c.awaitOperation(ctx, resp.location, resp.retryAfter)
	}
	return nil
}

// definition part names by type; anything unlisted ships as a generic JSON part.
var partPaths = map[resource.Type]struct{ path, format string }{
	resource.TypeNotebook:     {"notebook-content.ipynb", "ipynb"},
	resource.TypeDataPipeline: {"pipeline-content.json", ""},
	resource.TypeReport:       {"definition.pbir", ""},
}

func wrapDefinition(t resource.Type, content []byte) *itemDefinition {
	part := definitionPart{
		Path:        "definition.json",
		Payload:     base64.StdEncoding.EncodeToString(content),
		PayloadType: "InlineBase64",
	}
	def := &itemDefinition{}
	if pp, has := partPaths[t]; has {
		part.Path = pp.path
		def.Format = pp.format
	}
	def.Parts = []definitionPart{part}
	return def
}

type response struct {
	status     int
	body       []byte
	location   string
	retryAfter time.Duration
}

func (c *HTTPClient) do(ctx context.Context, method, uri string, body []byte) (*response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, rdr)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s %s", method, uri)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.V(7).Infof("platform request: %s %s", method, uri)
	resp, err := c.http.Do(req)
	if err != nil {
		// Network-level failures are worth retrying.
		return nil, &Error{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Message: "reading response body: " + err.Error()}
	}
	logging.V(9).Infof("platform response: %d (%d bytes)", resp.StatusCode, len(raw))

	if resp.StatusCode >= 400 {
		return nil, classify(resp.StatusCode, resp.Header, raw)
	}
	return &response{
		status:     resp.StatusCode,
		body:       raw,
		location:   resp.Header.Get("Location"),
		retryAfter: parseRetryAfter(resp.Header),
	}, nil
}

func classify(status int, hdr http.Header, body []byte) error {
	msg := errorMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, StatusCode: status, Message: msg}
	case status == http.StatusTooManyRequests || status >= 500:
		return &Error{
			Kind:       KindTransient,
			StatusCode: status,
			Message:    msg,
			RetryAfter: parseRetryAfter(hdr),
		}
	default:
		return &Error{Kind: KindRejected, StatusCode: status, Message: msg}
	}
}

func errorMessage(body []byte) string {
	var e struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		if e.ErrorCode != "" {
			return e.ErrorCode + ": " + e.Message
		}
		return e.Message
	}
	if len(body) > 0 {
		return string(body)
	}
	return "request failed"
}

func parseRetryAfter(hdr http.Header) time.Duration {
	if v := hdr.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// awaitOperation polls a long-running operation until it finishes.
func (c *HTTPClient) awaitOperation(ctx context.Context, location string, hint time.Duration) error {
	if location == "" {
		return errors.New("platform accepted the request but returned no operation location")
	}
	if hint < c.pollFloor {
		hint = c.pollFloor
	}

	deadline := time.Now().Add(operationTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(hint):
		}
		if time.Now().After(deadline) {
			return &Error{Kind: KindTransient, Message: "operation did not complete in time"}
		}

		resp, err := c.do(ctx, http.MethodGet, location, nil)
		if err != nil {
			return err
		}
		var op struct {
			Status string `json:"status"`
			Error  struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(resp.body, &op); err != nil {
			return errors.Wrap(err, "decoding operation status")
		}
		logging.V(7).Infof("operation %s: %s", location, op.Status)
		switch op.Status {
		case "Succeeded":
			return nil
		case "Failed":
			return &Error{Kind: KindRejected, Message: "operation failed: " + op.Error.Message}
		}
		if resp.retryAfter > 0 {
			hint = resp.retryAfter
		}
	}
}
