package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"courier-reconciliation-service/internal/auth"
	"courier-reconciliation-service/internal/changefeed"
	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/services"
	"courier-reconciliation-service/internal/store"

	"github.com/gorilla/websocket"
)

const testSecret = "hub-secret"

type fakeFetcher struct {
	orders []reconcile.Order
}

func (f fakeFetcher) FetchOrders(ctx context.Context, _ store.OrderFilter) ([]reconcile.Order, error) {
	return f.orders, ctx.Err()
}

func issue(t *testing.T, role auth.UserRole, courierID *string) string {
	t.Helper()
	token, err := auth.IssueAccessToken(auth.Claims{UserID: "u1", Role: role, Name: "tester", CourierID: courierID}, testSecret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func dial(t *testing.T, srv *httptest.Server, params url.Values) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + params.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newTestHub(suppressor *changefeed.Suppressor) (*Hub, *httptest.Server) {
	courier := "c1"
	orders := []reconcile.Order{
		{ID: "1", OrderNumber: "#1", Status: reconcile.StatusDelivered, TotalOrderFees: 100, PaymentMethod: "cash", AssignedCourierID: &courier},
	}
	recomputer := services.NewRecomputer(fakeFetcher{orders: orders}, nil)
	hub := NewHub(nil, testSecret, time.Minute, recomputer, suppressor, time.UTC)
	return hub, httptest.NewServer(http.HandlerFunc(hub.DashboardWS))
}

func TestDashboardRejectsBadToken(t *testing.T) {
	_, srv := newTestHub(nil)
	defer srv.Close()

	conn := dial(t, srv, url.Values{"token": {"nope"}})
	msg := readType(t, conn, "error")
	if msg["message"] != "unauthorized" {
		t.Fatalf("unexpected error message %v", msg["message"])
	}
}

func TestDashboardInitialMetrics(t *testing.T) {
	_, srv := newTestHub(nil)
	defer srv.Close()

	conn := dial(t, srv, url.Values{"token": {issue(t, auth.RoleAdmin, nil)}})
	sub := readType(t, conn, "subscribed")
	if sub["trigger"] != string(services.TriggerInitial) {
		t.Fatalf("expected initial trigger, got %v", sub["trigger"])
	}
	state := readType(t, conn, "metrics.state")
	if state["orderCount"].(float64) != 1 {
		t.Fatalf("expected one order, got %v", state["orderCount"])
	}
}

func TestDashboardCourierScopeEnforced(t *testing.T) {
	_, srv := newTestHub(nil)
	defer srv.Close()

	own := "c1"
	conn := dial(t, srv, url.Values{"token": {issue(t, auth.RoleCourier, &own)}, "courierId": {"c2"}})
	msg := readType(t, conn, "error")
	if msg["message"] != errCourierScope.Error() {
		t.Fatalf("unexpected error %v", msg["message"])
	}
}

func TestHandleEventBroadcastAndSuppress(t *testing.T) {
	suppressor := changefeed.NewSuppressor(time.Minute)
	hub, srv := newTestHub(suppressor)
	defer srv.Close()

	admin := issue(t, auth.RoleAdmin, nil)
	writer := dial(t, srv, url.Values{"token": {admin}, "clientId": {"tab-a"}})
	watcher := dial(t, srv, url.Values{"token": {admin}, "clientId": {"tab-b"}})
	readType(t, writer, "metrics.state")
	readType(t, watcher, "metrics.state")
	waitClients(t, hub, 2)

	suppressor.MarkLocal("1", "tab-a")
	courier := "c1"
	hub.HandleEvent(context.Background(), changefeed.Event{Type: changefeed.EventUpdate, OrderID: "1", CourierID: &courier})

	changed := readType(t, watcher, "orders.changed")
	if changed["orderId"] != "1" {
		t.Fatalf("unexpected order id %v", changed["orderId"])
	}
	state := readType(t, watcher, "metrics.state")
	if state["trigger"] != string(services.TriggerChangeEvent) {
		t.Fatalf("expected change_event trigger, got %v", state["trigger"])
	}

	_ = writer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg map[string]any
	if err := writer.ReadJSON(&msg); err == nil {
		t.Fatalf("writer tab should not receive its own echo, got %v", msg)
	}
}

func TestHandleEventSkipsOtherCouriers(t *testing.T) {
	hub, srv := newTestHub(nil)
	defer srv.Close()

	own := "c1"
	conn := dial(t, srv, url.Values{"token": {issue(t, auth.RoleCourier, &own)}})
	readType(t, conn, "metrics.state")
	waitClients(t, hub, 1)

	other := "c2"
	hub.HandleEvent(context.Background(), changefeed.Event{Type: changefeed.EventUpdate, OrderID: "9", CourierID: &other})
	hub.HandleEvent(context.Background(), changefeed.Event{Type: changefeed.EventUpdate, OrderID: "1", CourierID: &own})

	changed := readType(t, conn, "orders.changed")
	if changed["orderId"] != "1" {
		t.Fatalf("expected only the courier's own order, got %v", changed["orderId"])
	}
}
