package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ProofKey builds the object key for a delivery proof photo:
// orders/{orderNumber}/proof-{unixMillis}-{random}.jpg
func ProofKey(orderNumber string, now time.Time) string {
	segment := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(orderNumber), "")
	if segment == "" {
		segment = "unknown"
	}
	return fmt.Sprintf("orders/%s/proof-%d-%s.jpg", segment, now.UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "0000"
	}
	return hex.EncodeToString(buf)
}
