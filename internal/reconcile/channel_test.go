package reconcile

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw      string
		expected PaymentChannel
	}{
		{"CASH", ChannelCash},
		{" cash ", ChannelCash},
		{"Cash", ChannelCash},
		{"cod", ChannelCash},
		{"Cash on Delivery", ChannelCash},
		{"visa card", ChannelPaymob},
		{"visa_machine", ChannelVisaMachine},
		{"Visa Machine", ChannelVisaMachine},
		{"paymob", ChannelPaymob},
		{"Credit Card", ChannelPaymob},
		{"mastercard", ChannelPaymob},
		{"valu", ChannelValu},
		{"paymob_valu", ChannelValu},
		{"instapay", ChannelInstapay},
		{"wallet", ChannelWallet},
		{"vodafone_cash", ChannelWallet},
		{"on_hand", ChannelOnHand},
		{"on hand", ChannelOnHand},
		{"SDM office", ChannelOnHand},
		{"accountant sara", ChannelOnHand},
		{"bitcoin", ChannelOther},
		{"", ChannelOther},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := Normalize(tc.raw); got != tc.expected {
				t.Fatalf("Normalize(%q) = %s, want %s", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestNormalizeRuleOrder(t *testing.T) {
	n := NewNormalizer(nil, nil)
	rules := n.Rules()
	if len(rules) == 0 {
		t.Fatalf("expected rules")
	}
	if rules[0].Channel != ChannelOnHand || rules[0].Name != "collector" {
		t.Fatalf("collector rule must run first, got %s", rules[0].Name)
	}

	index := map[string]int{}
	for i, r := range rules {
		index[r.Name] = i
	}
	if index["visa_machine"] > index["card_gateway"] {
		t.Fatalf("exact visa_machine token must precede the card gateway rule")
	}
	if index["card_gateway"] > index["cash"] {
		t.Fatalf("card gateway rule must precede cash rule")
	}
}

func TestNormalizeCustomCollectors(t *testing.T) {
	n := NewNormalizer(nil, []string{" Mona "})
	if got := n.Normalize("collected by mona"); got != ChannelOnHand {
		t.Fatalf("expected on_hand, got %s", got)
	}
	if got := n.Normalize("sdm"); got != ChannelOther {
		t.Fatalf("default markers should be replaced, got %s", got)
	}
}

func TestNormalizeWarnsOnUnknown(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := NewNormalizer(zap.New(core), nil)

	if got := n.Normalize("Fawry"); got != ChannelOther {
		t.Fatalf("expected other, got %s", got)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(entries))
	}
	if v := entries[0].ContextMap()["paymentMethod"]; v != "Fawry" {
		t.Fatalf("expected raw method in warning, got %v", v)
	}

	n.Normalize("cash")
	if logs.Len() != 1 {
		t.Fatalf("recognized methods must not warn")
	}
}

func TestIsCashLike(t *testing.T) {
	for _, c := range []PaymentChannel{ChannelVisaMachine, ChannelInstapay, ChannelWallet, ChannelOnHand} {
		if !IsCashLike(c) {
			t.Errorf("%s should be cash-like", c)
		}
	}
	for _, c := range []PaymentChannel{ChannelCash, ChannelPaymob, ChannelValu, ChannelOther} {
		if IsCashLike(c) {
			t.Errorf("%s should not be cash-like", c)
		}
	}
}
