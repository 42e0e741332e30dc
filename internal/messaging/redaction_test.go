package messaging

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var emailLike = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func TestFilterRedactsEmailAddresses(t *testing.T) {
	inputs := []string{
		"reach me at jane.doe@example.org",
		"contact: a_b+tag@mail.co.uk now",
		"two: x@y.io and z@w.net",
	}
	for _, input := range inputs {
		out := Filter(input, false, false)
		assert.True(t, out.Redacted, input)
		assert.False(t, emailLike.MatchString(out.Text), "email survived in %q", out.Text)
		assert.Contains(t, out.Text, Placeholder)
	}
}

func TestFilterVerifiedPaidProjectIsExempt(t *testing.T) {
	inputs := []string{
		"",
		"call me at 555-123-4567",
		"jane@example.org",
		"see https://example.org/profile",
	}
	for _, input := range inputs {
		assert.Equal(t, Outcome{Text: input}, Filter(input, true, true))
	}
}

func TestFilterEmptyInput(t *testing.T) {
	for _, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
		assert.Equal(t, Outcome{}, Filter("", flags[0], flags[1]))
	}
}

func TestFilterRedactsPhoneNumbers(t *testing.T) {
	cases := map[string]string{
		"call me at 555-123-4567":  "call me at [content removed]",
		"(555) 123-4567 after 6":   "[content removed] after 6",
		"text +1 555.123.4567 pls": "text [content removed] pls",
		"my number is 5551234567":  "my number is [content removed]",
	}
	for input, want := range cases {
		out := Filter(input, true, false)
		assert.Equal(t, want, out.Text, input)
		assert.True(t, out.Redacted)
	}
}

func TestFilterRedactsURLs(t *testing.T) {
	out := Filter("portfolio at https://example.org/me and www.example.net", false, false)
	assert.Equal(t, "portfolio at [content removed] and [content removed]", out.Text)
	assert.True(t, out.Redacted)
}

func TestFilterLeavesPlainTextAlone(t *testing.T) {
	out := Filter("see you at the shelter on Monday", false, false)
	assert.Equal(t, Outcome{Text: "see you at the shelter on Monday"}, out)
}

func TestFilterAppliesPhoneThenEmailThenURL(t *testing.T) {
	// The email pass runs before the URL pass, so a mailbox on a www host is
	// removed as one email span rather than leaving a local part behind.
	out := Filter("mail bob@www.example.com or call 555-123-4567", false, false)
	assert.Equal(t, "mail [content removed] or call [content removed]", out.Text)

	out = Filter("call 555-123-4567 or visit www.example.org today", false, false)
	assert.Equal(t, "call [content removed] or visit [content removed] today", out.Text)

	// A URL carrying credentials loses its userinfo to the email pass; the
	// URL pass then removes the rest, placeholder included, as one span.
	out = Filter("login at https://u:p@h.com/x now", false, false)
	assert.Equal(t, "login at [content removed] now", out.Text)

	out = Filter("https://u:p@h.com/x", false, false)
	assert.Equal(t, Placeholder, out.Text)
}

func TestFilterIsDeterministic(t *testing.T) {
	input := "ping 555-123-4567 or jane@example.org at www.example.org"
	first := Filter(input, false, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Filter(input, false, false))
	}
}
