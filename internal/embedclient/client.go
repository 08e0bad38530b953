// Package embedclient talks to the Index-Config/Embeddings Service over
// GraphQL (spec.md §6): index-config lookups and weighted embedding builds.
package embedclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/machinebox/graphql"
	"github.com/sirupsen/logrus"

	"github.com/syncforge/ingestion/internal/model"
)

// VectorFieldConfig is one entry of indexConfig.vectorFields.
type VectorFieldConfig struct {
	Name       string  `json:"name"`
	Weight     float32 `json:"weight"`
	Dimensions int     `json:"dimensions"`
}

// IndexConfig is the response shape of the indexConfig query.
type IndexConfig struct {
	TenantID           string              `json:"tenantId"`
	VectorFields       []VectorFieldConfig `json:"vectorFields"`
	AutocompletePaths  []string            `json:"autocompletePaths"`
}

// WeightedText is one input to buildQueryEmbedding.
type WeightedText struct {
	Text   string  `json:"text"`
	Weight float32 `json:"weight"`
}

// Client wraps a machinebox/graphql.Client against the Embeddings/Index-Config Service.
type Client struct {
	gql *graphql.Client
	log *logrus.Entry
}

// New builds a Client targeting endpoint. httpClient, when non-nil,
// overrides the default client (used by tests to point at an httptest server).
func New(endpoint string, httpClient *http.Client, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	var opts []graphql.ClientOption
	if httpClient != nil {
		opts = append(opts, graphql.WithHTTPClient(httpClient))
	}
	return &Client{gql: graphql.NewClient(endpoint, opts...), log: log}
}

// IndexConfig fetches the tenant's index configuration for applicationID
// (spec.md §6: `indexConfig(applicationId)`).
func (c *Client) IndexConfig(ctx context.Context, applicationID string) (*IndexConfig, error) {
	req := graphql.NewRequest(`
		query($applicationId: String!) {
			indexConfig(applicationId: $applicationId) {
				tenantId
				vectorFields { name weight dimensions }
				autocompletePaths
			}
		}
	`)
	req.Var("applicationId", applicationID)

	var resp struct {
		IndexConfig IndexConfig `json:"indexConfig"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, &model.EnrichmentError{Stage: "index_config", Cause: fmt.Errorf("indexConfig query: %w", err)}
	}
	return &resp.IndexConfig, nil
}

// BuildQueryEmbedding calls buildQueryEmbedding with the given weighted
// texts, returning the resulting vector (spec.md §6). strategy is always
// "WEIGHTED_SUM" and normalize is always true per the documented contract.
func (c *Client) BuildQueryEmbedding(ctx context.Context, texts []WeightedText) ([]float32, error) {
	req := graphql.NewRequest(`
		mutation($weightedTexts: [WeightedTextInput!]!) {
			buildQueryEmbedding(input: { weightedTexts: $weightedTexts, strategy: "WEIGHTED_SUM", normalize: true }) {
				vector
				dimension
			}
		}
	`)
	req.Var("weightedTexts", texts)

	var resp struct {
		BuildQueryEmbedding struct {
			Vector    []float32 `json:"vector"`
			Dimension int       `json:"dimension"`
		} `json:"buildQueryEmbedding"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, &model.EnrichmentError{Stage: "embedding", Cause: fmt.Errorf("buildQueryEmbedding mutation: %w", err)}
	}
	return resp.BuildQueryEmbedding.Vector, nil
}
