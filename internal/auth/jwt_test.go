package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret"

func strPtr(v string) *string { return &v }

func TestIssueAndVerify(t *testing.T) {
	token, err := IssueAccessToken(Claims{UserID: "u1", Role: RoleCourier, Name: "Mona", CourierID: strPtr("c1")}, testSecret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := VerifyAccessToken(token, testSecret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != RoleCourier || claims.Name != "Mona" || *claims.CourierID != "c1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	now := time.Now()
	expired, _ := IssueAccessToken(Claims{UserID: "u1", Role: RoleAdmin}, testSecret, time.Minute, now.Add(-time.Hour))
	badRole, _ := IssueAccessToken(Claims{UserID: "u1", Role: "MERCHANT"}, testSecret, time.Hour, now)
	noCourier, _ := IssueAccessToken(Claims{UserID: "u1", Role: RoleCourier}, testSecret, time.Hour, now)
	valid, _ := IssueAccessToken(Claims{UserID: "u1", Role: RoleAdmin}, testSecret, time.Hour, now)

	cases := []struct {
		name   string
		token  string
		secret string
	}{
		{"empty", "", testSecret},
		{"expired", expired, testSecret},
		{"unknown role", badRole, testSecret},
		{"courier without id", noCourier, testSecret},
		{"wrong secret", valid, "other"},
		{"no secret configured", valid, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := VerifyAccessToken(tc.token, tc.secret); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestParseBearerToken(t *testing.T) {
	if got := ParseBearerToken("Bearer abc"); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := ParseBearerToken("Basic abc"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestHasPermission(t *testing.T) {
	if !HasPermission(RoleAdmin, PermManageHoldFees) {
		t.Fatalf("admin manages hold fees")
	}
	if HasPermission(RoleCourier, PermManageHoldFees) || HasPermission(RoleCourier, PermViewAllOrders) {
		t.Fatalf("courier must not manage hold fees or see all orders")
	}
	if !HasPermission(RoleCourier, PermUpdateOrder) {
		t.Fatalf("courier updates own orders")
	}
}
