package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"goldflow/config"
	"goldflow/logger"
	"goldflow/models"
)

// testClient wires a Client directly at an httptest server, bypassing the
// https shop URL construction NewClient does.
func testClient(srv *httptest.Server) *Client {
	return &Client{
		shopURL:    "test-store.myshopify.com",
		themeID:    42,
		apiVersion: "2024-01",
		pageSize:   2,
		bulk:       config.BulkConfig{PollInterval: time.Millisecond, MaxPolls: 5},
		baseURL:    srv.URL,
		graphqlURL: srv.URL + "/graphql.json",
		httpClient: srv.Client(),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		log:        logger.GetLogger(),
	}
}

func graphqlRequest(t *testing.T, r *http.Request) (query string, variables map[string]any) {
	t.Helper()
	var body struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode graphql request: %v", err)
	}
	return body.Query, body.Variables
}

func TestGetAllProductsPaginates(t *testing.T) {
	pageOne := `{"products":{"pageInfo":{"hasNextPage":true,"endCursor":"c1"},"edges":[
		{"node":{"id":"gid://shopify/Product/1","handle":"gold-ring","title":"Gold Ring","productType":"Ring",
			"metafields":{"edges":[{"node":{"namespace":"custom","key":"metal_weight","value":"10"}}]},
			"variants":{"edges":[{"node":{"id":"gid://shopify/ProductVariant/11","title":"22KT","sku":"GR-22","price":"50000","compareAtPrice":"62500",
				"metafields":{"edges":[]}}}]}}}]}}`
	pageTwo := `{"products":{"pageInfo":{"hasNextPage":false,"endCursor":""},"edges":[
		{"node":{"id":"gid://shopify/Product/2","handle":"silver-chain","title":"Silver Chain","productType":"Chain",
			"metafields":{"edges":[]},
			"variants":{"edges":[{"node":{"id":"gid://shopify/ProductVariant/21","title":"925","sku":"SC-925","price":"7000","compareAtPrice":"","metafields":{"edges":[]}}}]}}}]}}`

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("X-Shopify-Access-Token") != "" {
			// testClient bypasses the token transport, tokens are covered
			// elsewhere.
			t.Error("unexpected token header")
		}
		_, variables := graphqlRequest(t, r)
		page := pageOne
		if variables["cursor"] == "c1" {
			page = pageTwo
		}
		fmt.Fprintf(w, `{"data":%s}`, page)
	}))
	defer srv.Close()

	client := testClient(srv)
	products, err := client.GetAllProducts(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetAllProducts failed: %v", err)
	}
	if requests != 2 {
		t.Errorf("expected 2 page requests, got %d", requests)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Metafields["custom.metal_weight"] != "10" {
		t.Errorf("metafields not flattened: %v", products[0].Metafields)
	}
	if products[1].Variants[0].Title != "925" {
		t.Errorf("unexpected variant: %+v", products[1].Variants)
	}
}

func TestGetAllProductsHandleQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, variables := graphqlRequest(t, r)
		query, _ := variables["query"].(string)
		if !strings.Contains(query, "handle:gold-ring") || !strings.Contains(query, " OR ") {
			t.Errorf("unexpected handle query: %q", query)
		}
		fmt.Fprint(w, `{"data":{"products":{"pageInfo":{"hasNextPage":false,"endCursor":""},"edges":[]}}}`)
	}))
	defer srv.Close()

	client := testClient(srv)
	if _, err := client.GetAllProducts(context.Background(), []string{"gold-ring", "silver-chain"}); err != nil {
		t.Fatalf("GetAllProducts failed: %v", err)
	}
}

func TestGetAllProductsGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"throttled"}]}`)
	}))
	defer srv.Close()

	client := testClient(srv)
	if _, err := client.GetAllProducts(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected graphql error, got %v", err)
	}
}

func TestGetAndUpdateSettings(t *testing.T) {
	settingsDoc := `{"current":{"gst_percentage":3,"diamond_1_name":"VVS1","diamond_1_price_per_carat":50000,"theme_color":"gold"},"presets":{}}`
	var written string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/themes/42/assets.json"):
			payload, _ := json.Marshal(map[string]any{"asset": map[string]string{"key": settingsAssetKey, "value": settingsDoc}})
			w.Write(payload)
		case r.Method == "PUT" && strings.HasPrefix(r.URL.Path, "/themes/42/assets.json"):
			var body struct {
				Asset struct {
					Key   string `json:"key"`
					Value string `json:"value"`
				} `json:"asset"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode asset write: %v", err)
			}
			written = body.Asset.Value
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		}
	}))
	defer srv.Close()

	client := testClient(srv)

	settings, err := client.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings["gst_percentage"] != "3" {
		t.Errorf("number setting not stringified exactly: %q", settings["gst_percentage"])
	}
	if settings["diamond_1_name"] != "VVS1" {
		t.Errorf("unexpected setting: %q", settings["diamond_1_name"])
	}

	if err := client.UpdateSettings(context.Background(), map[string]string{"gold_rate": "6123.45"}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(written), &doc); err != nil {
		t.Fatalf("written asset is not valid JSON: %v", err)
	}
	current := doc["current"].(map[string]any)
	if current["gold_rate"] != 6123.45 {
		t.Errorf("rate not merged as number: %v", current["gold_rate"])
	}
	if current["theme_color"] != "gold" {
		t.Errorf("unrelated setting lost on merge: %v", current["theme_color"])
	}
}

func TestBulkUpdateVariantPrices(t *testing.T) {
	var uploaded string
	var polls int

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload" {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse upload: %v", err)
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("missing upload file: %v", err)
			}
			var b strings.Builder
			if _, err := io.Copy(&b, file); err != nil {
				t.Fatalf("read upload: %v", err)
			}
			uploaded = b.String()
			w.WriteHeader(http.StatusCreated)
			return
		}

		query, _ := graphqlRequest(t, r)
		switch {
		case strings.Contains(query, "stagedUploadsCreate"):
			fmt.Fprintf(w, `{"data":{"stagedUploadsCreate":{"stagedTargets":[{"url":"%s/upload","resourceUrl":"%s/upload/key","parameters":[{"name":"key","value":"tmp/bulk.jsonl"}]}],"userErrors":[]}}}`, srv.URL, srv.URL)
		case strings.Contains(query, "bulkOperationRunMutation"):
			fmt.Fprint(w, `{"data":{"bulkOperationRunMutation":{"bulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"CREATED"},"userErrors":[]}}}`)
		case strings.Contains(query, "currentBulkOperation"):
			polls++
			status := "RUNNING"
			if polls >= 2 {
				status = "COMPLETED"
			}
			fmt.Fprintf(w, `{"data":{"currentBulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"%s","errorCode":"","objectCount":"1"}}}`, status)
		default:
			t.Errorf("unexpected graphql query: %s", query)
		}
	}))
	defer srv.Close()

	client := testClient(srv)
	updates := []models.VariantPriceUpdate{{
		ProductID:      "1",
		VariantID:      "11",
		Price:          decimal.NewFromInt(62631),
		CompareAtPrice: decimal.NewFromInt(78289),
	}}

	result := client.BulkUpdateVariantPrices(context.Background(), updates)
	if result.FailedCount != 0 || result.SuccessCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(uploaded, `"gid://shopify/ProductVariant/11"`) {
		t.Errorf("variant gid missing from staged payload: %s", uploaded)
	}
	if !strings.Contains(uploaded, `"62631"`) || !strings.Contains(uploaded, `"78289"`) {
		t.Errorf("prices missing from staged payload: %s", uploaded)
	}
	if polls < 2 {
		t.Errorf("expected polling until completion, got %d polls", polls)
	}
}

func TestBulkUpdateVariantPricesFailure(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload" {
			w.WriteHeader(http.StatusCreated)
			return
		}
		query, _ := graphqlRequest(t, r)
		switch {
		case strings.Contains(query, "stagedUploadsCreate"):
			fmt.Fprintf(w, `{"data":{"stagedUploadsCreate":{"stagedTargets":[{"url":"%s/upload","resourceUrl":"","parameters":[{"name":"key","value":"tmp/bulk.jsonl"}]}],"userErrors":[]}}}`, srv.URL)
		case strings.Contains(query, "bulkOperationRunMutation"):
			fmt.Fprint(w, `{"data":{"bulkOperationRunMutation":{"bulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"CREATED"},"userErrors":[]}}}`)
		case strings.Contains(query, "currentBulkOperation"):
			fmt.Fprint(w, `{"data":{"currentBulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"FAILED","errorCode":"INTERNAL_SERVER_ERROR","objectCount":"0"}}}`)
		}
	}))
	defer srv.Close()

	client := testClient(srv)
	updates := []models.VariantPriceUpdate{
		{ProductID: "1", VariantID: "11", Price: decimal.NewFromInt(100), CompareAtPrice: decimal.NewFromInt(125)},
		{ProductID: "2", VariantID: "21", Price: decimal.NewFromInt(200), CompareAtPrice: decimal.NewFromInt(250)},
	}

	result := client.BulkUpdateVariantPrices(context.Background(), updates)
	if result.SuccessCount != 0 || result.FailedCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 2 || result.Errors[0].TargetID != "11" {
		t.Errorf("unexpected errors: %+v", result.Errors)
	}
}

func TestBulkUpdateEmptyInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty input must not reach the API")
	}))
	defer srv.Close()
	client := testClient(srv)

	if result := client.BulkUpdateVariantPrices(context.Background(), nil); result.SuccessCount != 0 || result.FailedCount != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result := client.BulkUpdateProductMetafields(context.Background(), nil); result.SuccessCount != 0 || result.FailedCount != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestEnsureGID(t *testing.T) {
	if got := ensureGID("Product", "123"); got != "gid://shopify/Product/123" {
		t.Errorf("unexpected gid: %s", got)
	}
	if got := ensureGID("Product", "gid://shopify/Product/123"); got != "gid://shopify/Product/123" {
		t.Errorf("gid should pass through: %s", got)
	}
}
