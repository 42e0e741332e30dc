package messaging

import "regexp"

// Placeholder replaces every redacted span.
const Placeholder = "[content removed]"

// A URL body may already contain placeholders from the earlier passes; the
// URL pass swallows them whole instead of stopping at their space.
var urlBody = `(?:` + regexp.QuoteMeta(Placeholder) + `|[^\s\[\]])+`

// Patterns run in this order. A later pattern only sees the output of the
// earlier ones, so an email domain that also looks like a URL is consumed
// by the email pass first.
var redactionPatterns = []*regexp.Regexp{
	// phone
	regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
	// email
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	// url
	regexp.MustCompile(`(?i)(https?://` + urlBody + `)|(www\.` + urlBody + `)`),
}

type Outcome struct {
	Text     string
	Redacted bool
}

// Filter removes contact details from text. Paid projects with a verified
// payment are exempt.
func Filter(text string, isPaidProject, hasVerifiedPayment bool) Outcome {
	if text == "" || (isPaidProject && hasVerifiedPayment) {
		return Outcome{Text: text}
	}

	out := Outcome{Text: text}
	for _, pattern := range redactionPatterns {
		if !pattern.MatchString(out.Text) {
			continue
		}
		out.Text = pattern.ReplaceAllLiteralString(out.Text, Placeholder)
		out.Redacted = true
	}
	return out
}
