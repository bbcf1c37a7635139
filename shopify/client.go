package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"goldflow/config"
	"goldflow/logger"
)

// accessTokenTransport stamps the Admin API token on every outgoing request.
type accessTokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t accessTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Shopify-Access-Token", t.token)
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return t.base.RoundTrip(req)
}

// Client talks to the Shopify Admin API, both GraphQL and the REST asset
// endpoints. All calls pass through a shared rate limiter so a large catalog
// never trips the platform's request budget.
type Client struct {
	shopURL    string
	themeID    int64
	apiVersion string
	pageSize   int
	bulk       config.BulkConfig
	baseURL    string
	graphqlURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// NewClient builds a client from the shopify section of the configuration.
func NewClient(cfg *config.Config) *Client {
	shop := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(cfg.Shopify.ShopURL, "https://"), "http://"), "/")
	baseURL := fmt.Sprintf("https://%s/admin/api/%s", shop, cfg.Shopify.APIVersion)

	rps := cfg.Shopify.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Shopify.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	client := &Client{
		shopURL:    shop,
		themeID:    cfg.Shopify.ThemeID,
		apiVersion: cfg.Shopify.APIVersion,
		pageSize:   cfg.Shopify.PageSize,
		bulk:       cfg.Shopify.Bulk,
		baseURL:    baseURL,
		graphqlURL: baseURL + "/graphql.json",
		httpClient: &http.Client{
			Transport: accessTokenTransport{token: cfg.Shopify.AccessToken, base: http.DefaultTransport},
			Timeout:   cfg.Shopify.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}

	client.log.WithComponent("shopify_client").WithFields(logger.Fields{
		"shop":        shop,
		"api_version": cfg.Shopify.APIVersion,
		"page_size":   client.pageSize,
	}).Info("shopify client initialized")

	return client
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// graphql posts one GraphQL document and returns the raw data payload.
// Top level GraphQL errors are joined into a single error.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("graphql request failed with status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}
	return parsed.Data, nil
}

// rest performs one REST Admin API call and decodes the JSON response into out.
func (c *Client) rest(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("rest %s %s failed with status %d: %s", method, path, resp.StatusCode, string(payload))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
