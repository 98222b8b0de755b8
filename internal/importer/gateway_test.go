package importer

import "testing"

func TestNormalizeGateway(t *testing.T) {
	cases := []struct {
		gateway, financial string
		method, status     string
	}{
		{"Paymob Accept", "pending", "paymob", "paid"},
		{"paymob_valu", "paid", "paymob", "paid"},
		{"ValU", "pending", "valu", "paid"},
		{"shopify_payments card", "pending", "paid", "paid"},
		{"Stripe", "", "paid", "paid"},
		{"manual", "paid", "paid", "paid"},
		{"manual", "partially_paid", "paid", "paid"},
		{"Cash on Delivery (COD)", "pending", "cash", "cod"},
		{"", "", "cash", "cod"},
	}

	for _, tc := range cases {
		t.Run(tc.gateway+"/"+tc.financial, func(t *testing.T) {
			method, status := NormalizeGateway(tc.gateway, tc.financial)
			if method != tc.method || status != tc.status {
				t.Fatalf("expected %s/%s, got %s/%s", tc.method, tc.status, method, status)
			}
		})
	}
}
