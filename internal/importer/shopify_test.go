package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNextPageURL(t *testing.T) {
	link := `<https://shop.example/admin/api/2024-01/orders.json?page_info=abc>; rel="previous", <https://shop.example/admin/api/2024-01/orders.json?page_info=def>; rel="next"`
	if got := nextPageURL(link); got != "https://shop.example/admin/api/2024-01/orders.json?page_info=def" {
		t.Fatalf("unexpected next url %q", got)
	}
	if got := nextPageURL(`<https://x>; rel="previous"`); got != "" {
		t.Fatalf("expected no next page, got %q", got)
	}
	if got := nextPageURL(""); got != "" {
		t.Fatalf("expected empty")
	}
}

func TestFetchOrdersSinceFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	calls := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("X-Shopify-Access-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_info") == "" {
			if r.URL.Query().Get("status") != "any" || r.URL.Query().Get("updated_at_min") == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-01/orders.json?page_info=p2>; rel="next"`, srv.URL))
			_, _ = w.Write([]byte(`{"orders":[{"id":1001,"name":"#1001","total_price":"250.00","gateway":"paymob","financial_status":"paid"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"orders":[{"id":1002,"name":"#1002","total_price":"90.5","payment_gateway_names":["Cash on Delivery (COD)"],"financial_status":"pending"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "2024-01", 5*time.Second)
	orders, err := c.FetchOrdersSince(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 page requests, got %d", calls)
	}
	if len(orders) != 2 || orders[1].GatewayName() != "Cash on Delivery (COD)" {
		t.Fatalf("unexpected orders %+v", orders)
	}
}

func TestFetchOrdersSinceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", "", time.Second)
	if _, err := c.FetchOrdersSince(context.Background(), time.Time{}); err == nil {
		t.Fatalf("expected error on 403")
	}
}
