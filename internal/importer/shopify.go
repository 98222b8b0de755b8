package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ShopifyOrder is the subset of the storefront order payload the importer reads.
type ShopifyOrder struct {
	ID                  json.Number `json:"id"`
	Name                string      `json:"name"`
	OrderNumber         json.Number `json:"order_number"`
	TotalPrice          string      `json:"total_price"`
	Gateway             string      `json:"gateway"`
	PaymentGatewayNames []string    `json:"payment_gateway_names"`
	FinancialStatus     string      `json:"financial_status"`
	CreatedAt           *time.Time  `json:"created_at"`
	UpdatedAt           *time.Time  `json:"updated_at"`
}

// GatewayName prefers the explicit gateway field, then the first listed gateway.
func (o ShopifyOrder) GatewayName() string {
	if strings.TrimSpace(o.Gateway) != "" {
		return o.Gateway
	}
	for _, name := range o.PaymentGatewayNames {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return ""
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	apiVersion string
	pageSize   int
}

func NewClient(baseURL, token, apiVersion string, timeout time.Duration) *Client {
	if apiVersion == "" {
		apiVersion = "2024-01"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		apiVersion: apiVersion,
		pageSize:   250,
	}
}

// FetchOrdersSince walks every page of orders updated at or after since.
func (c *Client) FetchOrdersSince(ctx context.Context, since time.Time) ([]ShopifyOrder, error) {
	q := url.Values{}
	q.Set("status", "any")
	q.Set("limit", fmt.Sprint(c.pageSize))
	if !since.IsZero() {
		q.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	}
	next := fmt.Sprintf("%s/admin/api/%s/orders.json?%s", c.baseURL, c.apiVersion, q.Encode())

	out := make([]ShopifyOrder, 0)
	for next != "" {
		page, link, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		next = nextPageURL(link)
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]ShopifyOrder, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("shopify orders: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Orders []ShopifyOrder `json:"orders"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("failed to decode orders: %w", err)
	}
	return payload.Orders, resp.Header.Get("Link"), nil
}

var linkNextPattern = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="?next"?`)

func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		if m := linkNextPattern.FindStringSubmatch(strings.TrimSpace(part)); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}
