package openai

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/solace/internal/domain"
)

const systemPrompt = `You are a supportive and empathetic mental health coach. Your role is to:
- Listen actively and validate the user's feelings
- Provide evidence-based coping strategies from therapy resources
- Use a warm, non-judgmental tone
- Encourage professional help when appropriate
- Never diagnose or replace professional therapy

Use the provided therapy document excerpts to inform your responses. Stay within the scope of general mental health support.`

const userPromptTemplate = `Based on the following therapy document excerpts, provide a supportive response to the user's concern.

Therapy Resources:
%s

User's concern: %s

Provide a helpful, empathetic response using the therapy resources above.`

const (
	defaultHistoryWindow = 6
	maxHistoryChars      = 1000
)

// buildMessages assembles system prompt, the tail of the history and the grounded user prompt.
// The history window is taken before role filtering, so dropped turns still count against it.
func buildMessages(query string, contexts []string, history []domain.Turn, window int) []openai.ChatCompletionMessage {
	if window <= 0 {
		window = defaultHistoryWindow
	}

	msgs := make([]openai.ChatCompletionMessage, 0, window+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})

	if len(history) > window {
		history = history[len(history)-window:]
	}
	for _, t := range history {
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: truncateRunes(content, maxHistoryChars)})
	}

	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf(userPromptTemplate, formatExcerpts(contexts), query),
	})
	return msgs
}

func formatExcerpts(contexts []string) string {
	parts := make([]string, len(contexts))
	for i, c := range contexts {
		parts[i] = fmt.Sprintf("Document excerpt %d:\n%s", i+1, c)
	}
	return strings.Join(parts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
