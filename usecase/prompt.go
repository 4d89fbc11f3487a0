package usecase

import (
	"strings"

	"github.com/companionkit/agentic/domain"
)

const (
	formattingDirective = "ONLY generate plain sentences. " +
		"You will be provided the user's input and some information of the book to help with your answer. " +
		"The user only gives you the question and doesn't have any knowledge of the information of the book that was given to you. " +
		"Use this information to craft your response. " +
		"Aim to reflect the book's content and author's style while following the given output pattern. " +
		"The desired output should mirror the character as closely as possible and be approximately twice the length of example outputs provided. "

	groundingNote = " The provided extra information is only to help guide your answer, " +
		"but this is not in the user's question and they don't know it exists. " +
		"They only know their prompt: "
)

// AssemblePrompt builds the system and user messages for one pipeline run.
//
// The system message concatenates, in fixed order: the formatting directive,
// the reply structure anchored on the persona's description, the Role block
// with the persona's instructions, and the Output Pattern block with the
// persona's seed dialogue. The order is a contract with the model; the output
// is byte-identical for identical inputs.
//
// The user message is the raw prompt, followed by the grounding note and the
// retrieved context when there is any. An empty context yields the raw prompt
// alone. Pure function, no validation: malformed profile fields pass through.
func AssemblePrompt(profile domain.PersonaProfile, contextText, rawPrompt string) (system, user domain.ChatMessage) {
	var b strings.Builder
	b.WriteString(formattingDirective)
	b.WriteString("Always adhere to the following structure: ")
	b.WriteString(profile.Description)
	b.WriteString(" [emotion]: [output]. Never have [emotion] more than once. Always mention the author's full name.")
	b.WriteString("\nRole:\n")
	b.WriteString(profile.Instructions)
	b.WriteString("\nOutput Pattern:\n")
	b.WriteString(profile.Seed)

	system = domain.ChatMessage{Role: domain.SystemRole, Content: b.String()}

	content := rawPrompt
	if contextText != "" {
		content = rawPrompt + groundingNote + contextText
	}
	user = domain.ChatMessage{Role: domain.UserRole, Content: content}

	return system, user
}
