package reconcile

import (
	"strings"

	"go.uber.org/zap"
)

type PaymentChannel string

const (
	ChannelCash        PaymentChannel = "cash"
	ChannelPaymob      PaymentChannel = "paymob"
	ChannelValu        PaymentChannel = "valu"
	ChannelVisaMachine PaymentChannel = "visa_machine"
	ChannelInstapay    PaymentChannel = "instapay"
	ChannelWallet      PaymentChannel = "wallet"
	ChannelOnHand      PaymentChannel = "on_hand"
	ChannelOther       PaymentChannel = "other"
)

var allChannels = []PaymentChannel{
	ChannelCash,
	ChannelPaymob,
	ChannelValu,
	ChannelVisaMachine,
	ChannelInstapay,
	ChannelWallet,
	ChannelOnHand,
	ChannelOther,
}

func AllChannels() []PaymentChannel {
	out := make([]PaymentChannel, len(allChannels))
	copy(out, allChannels)
	return out
}

// CashLikeChannels are collected in person by the courier.
var CashLikeChannels = []PaymentChannel{
	ChannelVisaMachine,
	ChannelInstapay,
	ChannelWallet,
	ChannelOnHand,
}

func IsCashLike(c PaymentChannel) bool {
	for _, v := range CashLikeChannels {
		if v == c {
			return true
		}
	}
	return false
}

// DefaultCollectorMarkers are name fragments of office collectors whose
// collections reconcile as cash on hand.
var DefaultCollectorMarkers = []string{"sdm", "accountant", "محاسب", "office"}

var (
	valuMarkers        = []string{"valu"}
	visaMachineTokens  = []string{"visa_machine", "visa machine", "machine"}
	instapayTokens     = []string{"instapay"}
	walletTokens       = []string{"wallet", "mobile_wallet", "vodafone_cash"}
	onHandTokens       = []string{"on_hand", "on hand"}
	cardGatewayMarkers = []string{"paymob", "visa", "mastercard", "card", "credit", "debit", "باي موب"}
	cashMarkers        = []string{"cash", "cod", "cash on delivery"}
)

type NormalizeRule struct {
	Name    string
	Channel PaymentChannel
	Match   func(method string) bool
}

// Normalizer maps raw payment-method strings onto PaymentChannel. Rules run in
// order on the lower-cased, trimmed input and the first match wins.
type Normalizer struct {
	rules  []NormalizeRule
	logger *zap.Logger
}

func NewNormalizer(logger *zap.Logger, collectorMarkers []string) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	markers := lowerAll(collectorMarkers)
	if len(markers) == 0 {
		markers = lowerAll(DefaultCollectorMarkers)
	}

	rules := []NormalizeRule{
		{Name: "collector", Channel: ChannelOnHand, Match: containsAny(markers)},
		{Name: "valu", Channel: ChannelValu, Match: containsAny(valuMarkers)},
		{Name: "visa_machine", Channel: ChannelVisaMachine, Match: equalsAny(visaMachineTokens)},
		{Name: "instapay", Channel: ChannelInstapay, Match: equalsAny(instapayTokens)},
		{Name: "wallet", Channel: ChannelWallet, Match: equalsAny(walletTokens)},
		{Name: "on_hand", Channel: ChannelOnHand, Match: equalsAny(onHandTokens)},
		{Name: "card_gateway", Channel: ChannelPaymob, Match: containsAny(cardGatewayMarkers)},
		{Name: "cash", Channel: ChannelCash, Match: containsAny(cashMarkers)},
	}
	return &Normalizer{rules: rules, logger: logger}
}

// Rules returns the ordered rule table.
func (n *Normalizer) Rules() []NormalizeRule {
	out := make([]NormalizeRule, len(n.rules))
	copy(out, n.rules)
	return out
}

func (n *Normalizer) Normalize(raw string) PaymentChannel {
	method := strings.ToLower(strings.TrimSpace(raw))
	if method != "" {
		for _, rule := range n.rules {
			if rule.Match(method) {
				return rule.Channel
			}
		}
	}
	n.logger.Warn("unrecognized payment method", zap.String("paymentMethod", raw))
	return ChannelOther
}

var defaultNormalizer = NewNormalizer(nil, nil)

// SetDefaultNormalizer replaces the normalizer used by the package-level helpers.
// Call it once during startup.
func SetDefaultNormalizer(n *Normalizer) {
	if n != nil {
		defaultNormalizer = n
	}
}

func Normalize(raw string) PaymentChannel {
	return defaultNormalizer.Normalize(raw)
}

func containsAny(markers []string) func(string) bool {
	return func(method string) bool {
		for _, m := range markers {
			if m != "" && strings.Contains(method, m) {
				return true
			}
		}
		return false
	}
}

func equalsAny(tokens []string) func(string) bool {
	return func(method string) bool {
		for _, t := range tokens {
			if method == t {
				return true
			}
		}
		return false
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
