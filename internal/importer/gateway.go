package importer

import "strings"

// NormalizeGateway maps a storefront gateway name and financial status onto
// the payment_method/payment_status pair stored on the order.
func NormalizeGateway(gateway, financialStatus string) (paymentMethod, paymentStatus string) {
	g := strings.ToLower(strings.TrimSpace(gateway))
	fs := strings.ToLower(strings.TrimSpace(financialStatus))

	switch {
	case strings.Contains(g, "paymob"):
		return "paymob", "paid"
	case strings.Contains(g, "valu"):
		return "valu", "paid"
	case strings.Contains(g, "card"), strings.Contains(g, "stripe"):
		return "paid", "paid"
	case strings.Contains(fs, "paid"):
		return "paid", "paid"
	default:
		return "cash", "cod"
	}
}
