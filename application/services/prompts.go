package services

import (
	"fmt"
	"strings"

	"graphmem-backend/domain/memory"
	"graphmem-backend/domain/simulation"
)

// BuildChatPrompt renders the live short-term history ahead of the latest
// user message so the reply stays grounded in the conversation
func BuildChatPrompt(history []*memory.ShortTermMessage) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant with access to the conversation so far.\n\n")

	if len(history) == 0 {
		b.WriteString("(no previous dialogue)\n")
	} else {
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	b.WriteString("\nassistant:")
	return b.String()
}

// BuildDialoguePrompt renders the next-turn prompt for a simulated speaker
func BuildDialoguePrompt(seedContext string, speaker simulation.Participant, history []simulation.ProgressRecord) string {
	var b strings.Builder

	if strings.TrimSpace(seedContext) != "" {
		fmt.Fprintf(&b, "Scenario: %s\n\n", seedContext)
	}

	fmt.Fprintf(&b, "You are %s in a multi-party conversation.\n", speaker.Name)
	if strings.TrimSpace(speaker.Persona) != "" {
		fmt.Fprintf(&b, "Stay in character: %s\n", speaker.Persona)
	}
	b.WriteString("\nConversation so far:\n")

	if len(history) == 0 {
		b.WriteString("(no previous dialogue)\n")
	} else {
		for _, rec := range history {
			fmt.Fprintf(&b, "%s: %s\n", rec.Speaker, rec.Content)
		}
	}

	fmt.Fprintf(&b, "\nRespond with %s's next line only.\n", speaker.Name)
	return b.String()
}

// BuildSummaryPrompt asks for a durable summary over prefixed dialogue lines
func BuildSummaryPrompt(lines []string) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation focusing on stable knowledge.\n\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// MessageLines renders messages as role-prefixed summary input
func MessageLines(messages []*memory.ShortTermMessage) []string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return lines
}

// ProgressLines renders simulation turns as speaker-prefixed summary input
func ProgressLines(progress []simulation.ProgressRecord) []string {
	lines := make([]string, 0, len(progress))
	for _, rec := range progress {
		lines = append(lines, fmt.Sprintf("%s: %s", rec.Speaker, rec.Content))
	}
	return lines
}
