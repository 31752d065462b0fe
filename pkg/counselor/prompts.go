package counselor

import (
	"fmt"
	"strings"

	"github.com/soulrag/soulrag-go/pkg/history"
	"github.com/soulrag/soulrag-go/pkg/index"
)

const condenseTemplate = "Rewrite the follow-up question into a standalone, self-contained question.\n\n" +
	"=== Chat history ===\n%s\n\n" +
	"Follow-up question: %s\n" +
	"Standalone question:"

const answerTemplate = "%s\n" +
	"=== Retrieved Context ===\n%s\n\n" +
	"Question: %s\n" +
	"Answer:"

// condensePrompt renders the prompt that rewrites a follow-up question into
// a standalone one, given the recent transcript window.
func condensePrompt(turns []*history.Turn, question string) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		switch turn.Role {
		case history.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("Human: ")
		}
		b.WriteString(turn.Content)
	}
	return fmt.Sprintf(condenseTemplate, b.String(), question)
}

// answerPrompt renders the final generation prompt from the rendered
// personality, the retrieved chunks and the standalone question.
func answerPrompt(personality string, chunks []*index.Chunk, question string) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return fmt.Sprintf(answerTemplate, personality, strings.Join(texts, "\n\n"), question)
}
