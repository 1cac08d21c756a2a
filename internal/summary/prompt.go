package summary

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message is one chat message sent to the language model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const systemPrompt = `You are a web analytics assistant. You receive a site's recent tracking events
as JSON (date, time, type, path, referrer) and a question from the site owner.
Answer in concise markdown. Base every statement on the events provided; if the
data cannot answer the question, say so. Referrers starting with "qr:" are QR
code scans and "direct" means no referrer.`

// BuildPrompt assembles the system and user messages for one summary request.
func BuildPrompt(siteName, question string, evts []SimplifiedEvent) ([]Message, error) {
	data, err := json.Marshal(evts)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	siteName = strings.TrimSpace(siteName)
	if siteName == "" {
		siteName = "this site"
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Site: %s\n", siteName)
	fmt.Fprintf(&user, "Events (%d most recent, oldest first):\n%s\n\n", len(evts), data)
	fmt.Fprintf(&user, "Question: %s", strings.TrimSpace(question))

	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user.String()},
	}, nil
}
