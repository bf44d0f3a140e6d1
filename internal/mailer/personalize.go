// internal/mailer/personalize.go
package mailer

import (
	"net/url"
	"strings"
)

const unsubscribePlaceholder = "{{unsubscribe_url}}"

// PersonalizeHTML substitutes the per-recipient unsubscribe link into the
// campaign body. Content that carries no unsubscribe link at all gets a
// plain footer appended so every recipient can opt out.
func PersonalizeHTML(html, recipient, baseURL string) string {
	unsubscribeURL := strings.TrimRight(baseURL, "/") + "/api/newsletter/unsubscribe?email=" + url.QueryEscape(recipient)

	out := strings.ReplaceAll(html, unsubscribePlaceholder, unsubscribeURL)

	if !strings.Contains(strings.ToLower(out), "unsubscribe") {
		out += `<p style="font-size:12px"><a href="` + unsubscribeURL + `">Unsubscribe</a></p>`
	}
	return out
}
