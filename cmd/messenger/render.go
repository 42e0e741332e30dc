package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/saeid-a/VolunteerHub/internal/messaging"
	"github.com/saeid-a/VolunteerHub/internal/models"
)

var (
	nameStyle    = lipgloss.NewStyle().Bold(true)
	unreadStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Italic(true)
)

// now is swapped in tests.
var now = time.Now

const previewLength = 60

func participantLabel(conversation messaging.Conversation) string {
	if conversation.Participant.ID == 0 {
		return "unknown"
	}
	name := conversation.Participant.Name
	if name == "" {
		name = fmt.Sprintf("user %d", conversation.Participant.ID)
	}
	return fmt.Sprintf("%s (#%d)", name, conversation.Participant.ID)
}

func formatConversation(conversation messaging.Conversation) string {
	var b strings.Builder
	b.WriteString(nameStyle.Render(participantLabel(conversation)))

	if conversation.Project != nil {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" [%s, %s]", conversation.Project.Title, conversation.Project.Type)))
	}
	if conversation.Unread > 0 {
		b.WriteString(" ")
		b.WriteString(unreadStyle.Render(fmt.Sprintf("%d unread", conversation.Unread)))
	}

	if conversation.Latest != nil {
		preview := conversation.Display(*conversation.Latest).Text
		if runes := []rune(preview); len(runes) > previewLength {
			preview = string(runes[:previewLength-3]) + "..."
		}
		b.WriteString("\n    ")
		b.WriteString(preview)
		b.WriteString(mutedStyle.Render(" · " + humanize.RelTime(conversation.Latest.CreatedAt, now(), "ago", "from now")))
	}
	return b.String()
}

func formatMessage(conversation messaging.Conversation, message models.Message, localUserID int64) string {
	author := participantLabel(conversation)
	if message.SenderID == localUserID {
		author = "you"
	}

	var b strings.Builder
	if message.ID > 0 {
		fmt.Fprintf(&b, "#%d ", message.ID)
	}
	b.WriteString(nameStyle.Render(author))
	b.WriteString(": ")
	b.WriteString(conversation.Display(message).Text)

	if message.OriginalMessage != nil {
		quoted := conversation.Display(models.Message{Body: message.OriginalMessage.Body}).Text
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (re #%d: %q)", message.OriginalMessage.ID, quoted)))
	}

	switch message.Status {
	case models.MessageStatusPending:
		b.WriteString(" " + pendingStyle.Render("sending"))
	case models.MessageStatusFailed:
		b.WriteString(" " + failedStyle.Render("failed"))
	case models.MessageStatusRead:
		if message.SenderID == localUserID {
			b.WriteString(mutedStyle.Render(" read"))
		}
	}
	return b.String()
}
