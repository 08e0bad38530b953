// Package searchclient talks to the Search Service over GraphQL (spec.md
// §6): the upsertProducts mutation used by the Commit Coordinator's search
// phase.
package searchclient

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/machinebox/graphql"
)

var nonOKStatusPattern = regexp.MustCompile(`non-200 status code: (\d+)`)

// ClassifyTransportError extracts a TransientHTTPError from a graphql.Client
// transport failure, when the failure carries a recognizable HTTP status
// (machinebox/graphql reports non-200 responses as a plain error string
// rather than a typed error). Returns nil when err doesn't match that shape.
func ClassifyTransportError(err error) *TransientHTTPError {
	if err == nil {
		return nil
	}
	m := nonOKStatusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return nil
	}
	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return nil
	}
	return &TransientHTTPError{Status: status, Body: err.Error()}
}

// Client wraps a machinebox/graphql.Client against the Search Service.
type Client struct {
	gql *graphql.Client
}

// New builds a Client targeting endpoint. httpClient, when non-nil,
// overrides the default client (tests point it at an httptest server).
func New(endpoint string, httpClient *http.Client) *Client {
	var opts []graphql.ClientOption
	if httpClient != nil {
		opts = append(opts, graphql.WithHTTPClient(httpClient))
	}
	return &Client{gql: graphql.NewClient(endpoint, opts...)}
}

// TransientHTTPError wraps a non-2xx response so the Commit Coordinator can
// distinguish retryable (5xx/429/413) failures from a hard GraphQL error.
type TransientHTTPError struct {
	Status int
	Body   string
}

func (e *TransientHTTPError) Error() string {
	return fmt.Sprintf("search service responded %d: %s", e.Status, e.Body)
}

// IsPayloadTooLarge reports whether the response matches the 413/"Payload
// Too Large"/"length limit exceeded" signals the Commit Coordinator reacts
// to by halving its batch size (spec.md §4.G).
func (e *TransientHTTPError) IsPayloadTooLarge() bool {
	if e.Status == http.StatusRequestEntityTooLarge {
		return true
	}
	body := strings.ToLower(e.Body)
	return strings.Contains(body, "payload too large") || strings.Contains(body, "length limit exceeded")
}

// IsRetryable reports whether the status is a transient 5xx/429.
func (e *TransientHTTPError) IsRetryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// UpsertProducts sends one batch of normalized documents to the Search
// Service (spec.md §6).
func (c *Client) UpsertProducts(ctx context.Context, appID, tenantID string, docs []map[string]interface{}) error {
	req := graphql.NewRequest(`
		mutation($appId: String!, $tenantId: String, $docs: [JSON!]!) {
			upsertProducts(appId: $appId, tenantId: $tenantId, docs: $docs)
		}
	`)
	req.Var("appId", appID)
	if tenantID != "" {
		req.Var("tenantId", tenantID)
	}
	req.Var("docs", docs)

	var resp struct {
		UpsertProducts bool `json:"upsertProducts"`
	}
	return c.gql.Run(ctx, req, &resp)
}

// DeleteProducts issues a best-effort compensating delete for the given
// document ids (spec.md §4.G rollback). Failures are the caller's to log;
// this method returns the raw error for that purpose.
func (c *Client) DeleteProducts(ctx context.Context, appID string, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}
	req := graphql.NewRequest(`
		mutation($appId: String!, $ids: [String!]!) {
			deleteProducts(appId: $appId, ids: $ids)
		}
	`)
	req.Var("appId", appID)
	req.Var("ids", docIDs)

	var resp struct {
		DeleteProducts bool `json:"deleteProducts"`
	}
	return c.gql.Run(ctx, req, &resp)
}
