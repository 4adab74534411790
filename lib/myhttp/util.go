package myhttp

import (
	"fmt"
	"net/http"
	"os"
)

// HostnameWithScheme is used to compose the urls a payment provider redirects back to
func HostnameWithScheme(r *http.Request) string {
	if publicURL := os.Getenv("PUBLIC_BASE_URL"); publicURL != "" {
		return publicURL
	}

	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
