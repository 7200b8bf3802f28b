package inference

import (
	"fmt"
	"strings"

	"studymate/internal/domain"
)

const systemRole = "You are an assistant for study materials."

func studyQuestionPrompt(query string) string {
	return fmt.Sprintf(`Decide whether this question is a study question.
A study question is about school or university subjects (mathematics, physics, history, literature, computer science and so on), about specific courses or about study materials.
NOT study questions: small talk ("how are you?", "what's new?"), greetings, everyday questions, personal topics.

Answer only '1' or '0', where 1 means yes and 0 means no.
Question: %s`, query)
}

func locationQueryPrompt(query string) string {
	return fmt.Sprintf(`Decide whether the user is trying to find where, and in which course, the information they want is located.

Answer only '1' or '0', where 1 means yes and 0 means no.
Question: %s`, query)
}

func tagsPrompt(text string) string {
	return fmt.Sprintf(`Extract the keywords from the text, in singular form and lower case: "%s"`, text)
}

func shortAnswerPrompt(query string) string {
	return fmt.Sprintf(`Answer this question briefly and politely, without extra details. Address the user informally and do not greet them: "%s"`, query)
}

func groundedAnswerPrompt(query string, chunks []domain.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return fmt.Sprintf(`Answer the user's question using only the materials below.
Do not add any information of your own. Address the user informally.
Question: %s
Materials:
%s`, query, strings.Join(parts, "\n\n"))
}
