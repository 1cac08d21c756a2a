// Package referrers groups raw referrer values into traffic sources.
package referrers

import (
	"net/url"
	"strings"
)

// Source names for referrers that are not a web page.
const (
	Direct = "Direct"
	QRCode = "QR code"
)

// knownSources lists hostnames per display name. Subdomains match too.
var knownSources = map[string][]string{
	"Google":      {"google.com", "google.co.uk", "google.de", "google.fr", "google.es", "google.it", "google.ca", "google.com.au", "google.co.jp", "google.com.br"},
	"Google Maps": {"maps.google.com", "maps.app.goo.gl"},
	"Gmail":       {"mail.google.com", "com.google.android.gm"},
	"Bing":        {"bing.com"},
	"DuckDuckGo":  {"duckduckgo.com"},
	"Yahoo":       {"yahoo.com"},
	"Ecosia":      {"ecosia.org"},
	"Facebook":    {"facebook.com", "fb.com", "m.facebook.com", "l.facebook.com"},
	"Instagram":   {"instagram.com", "l.instagram.com"},
	"X/Twitter":   {"x.com", "twitter.com", "t.co"},
	"LinkedIn":    {"linkedin.com", "lnkd.in"},
	"TikTok":      {"tiktok.com"},
	"Pinterest":   {"pinterest.com"},
	"Reddit":      {"reddit.com"},
	"YouTube":     {"youtube.com", "youtu.be"},
	"WhatsApp":    {"whatsapp.com", "wa.me"},
	"Telegram":    {"telegram.org", "t.me"},
	"Tripadvisor": {"tripadvisor.com", "tripadvisor.co.uk", "tripadvisor.es"},
	"Yelp":        {"yelp.com"},
	"Hacker News": {"news.ycombinator.com"},
	"GitHub":      {"github.com"},
	"Outlook":     {"outlook.live.com", "outlook.office.com"},
	"Bitly":       {"bit.ly"},
}

var hostIndex = buildIndex()

func buildIndex() map[string]string {
	index := make(map[string]string)
	for name, hosts := range knownSources {
		for _, h := range hosts {
			index[h] = name
		}
	}
	return index
}

// Source returns the traffic source of a stored referrer: Direct when empty,
// QRCode for "qr:" markers, a known display name, or the bare hostname.
func Source(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	switch {
	case referrer == "":
		return Direct
	case strings.HasPrefix(strings.ToLower(referrer), "qr:"):
		return QRCode
	}

	host := referrer
	if u, err := url.Parse(referrer); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	return FriendlyName(host)
}

// FriendlyName maps a hostname to a display name. Unknown hosts are returned
// lowercased without "www.".
func FriendlyName(hostname string) string {
	hostname = strings.TrimPrefix(strings.ToLower(hostname), "www.")

	// Walk from the full host towards its parent domains so the most specific
	// entry wins: maps.google.com before google.com.
	for h := hostname; h != ""; {
		if name, ok := hostIndex[h]; ok {
			return name
		}
		dot := strings.IndexByte(h, '.')
		if dot < 0 {
			break
		}
		h = h[dot+1:]
	}
	return hostname
}
