// Package prompt composes generation requests. The topic builder asks for a
// marker-structured study document; the assistant builder folds a query and
// its source plan into a single sourcing-aware request.
package prompt

import (
	"fmt"
	"strings"

	"github.com/drillbook/drillbook/internal/ai"
	"github.com/drillbook/drillbook/internal/sections"
	"github.com/drillbook/drillbook/internal/source"
)

const topicSystemPrompt = `You are an engineering course tutor writing self-contained study material for one curriculum topic.

STRUCTURE: Write the document as plain text split into sections. Open each section with its marker token on its own line, in this exact order: %s. Do not add other markers or headings.

STYLE:
- Write for a student meeting the topic for the first time
- Wrap every formula in double asterisks, e.g. **V = I*R**
- After a formula, define its symbols as a dash list of "symbol: meaning" items
- Use dash lists for enumerations
- Keep each section focused; no filler`

const assistantSystemPrompt = `You are a study assistant answering one question for an engineering student.

STRUCTURE: Split your reply into sections opened by their marker token on its own line, in this exact order: %s. Put the full answer under the first marker, the sources you relied on under the second, and further reading under the third (leave it empty unless asked for resources).

STYLE:
- Wrap formulas in double asterisks, define symbols as "symbol: meaning" dash lists
- Cite only the sources you were given unless internet lookup is allowed
- Be precise; no filler`

// TopicRequest builds the generation request for one curriculum topic.
func TopicRequest(subjectName, unitTitle, topic string) ai.CompletionRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", subjectName)
	fmt.Fprintf(&b, "Unit: %s\n", unitTitle)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	b.WriteString("\nWrite the study document for this topic.")

	return ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: fmt.Sprintf(topicSystemPrompt, markerList(sections.TopicSchema))},
			{Role: "user", Content: b.String()},
		},
		Task:      ai.TaskContent,
		MaxTokens: 2048,
	}
}

// AssistantRequest builds the generation request for an assistant query,
// encoding the source plan's policy into the instructions.
func AssistantRequest(q source.ContentQuery, plan source.SourcePlan) ai.CompletionRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Question topic: %s\n", q.Topic)

	if q.KnowledgeLevel.Valid() {
		fmt.Fprintf(&b, "Answer depth: %s (%s level of understanding)\n", q.KnowledgeLevel.Label(), q.KnowledgeLevel)
	}
	if q.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", q.Subject)
	}

	b.WriteString("\nSources to cite:\n")
	for i, c := range plan.Citations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}

	if plan.AllowInternet {
		b.WriteString("\nInternet lookup: allowed.\n")
	} else {
		b.WriteString("\nInternet lookup: not allowed; stay within the sources above.\n")
	}
	if q.IncludeResources {
		b.WriteString("Recommend supplementary learning resources (articles, videos, practice sets) in the resources section.\n")
	}
	if q.HasImage {
		b.WriteString("The student attached an image with the question; describe how your answer relates to it.\n")
	}

	msgs := []ai.Message{
		{Role: "system", Content: fmt.Sprintf(assistantSystemPrompt, markerList(sections.AnswerSchema))},
		{Role: "user", Content: b.String()},
	}

	return ai.CompletionRequest{
		Messages:  msgs,
		Task:      ai.TaskAssistant,
		MaxTokens: 1536,
	}
}

func markerList(schema sections.Schema) string {
	tokens := make([]string, len(schema))
	for i, m := range schema {
		tokens[i] = m.Start
	}
	return strings.Join(tokens, " ")
}
