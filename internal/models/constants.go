package models

const (
	ContextSeparator = "\n---\n"

	// FallbackAnswer is returned verbatim when retrieval finds nothing.
	FallbackAnswer = "I could not find relevant information in the document."

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	SystemPrompt = `You are a helpful AI assistant. You will answer the user's question based ONLY on the provided context. If the answer is not in the context, say 'I do not have enough information to answer that.'`

	// UserPromptTemplate takes the joined context, the rendered transcript and the question.
	UserPromptTemplate = `Context:
%s

Conversation History:
%s

Based on the context and history above, please answer the following question: %s
`
)
