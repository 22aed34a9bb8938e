package out

import "context"

// TextCompleter is the narrow contract to the external text-completion
// capability. The response is untrusted free text; callers own the parsing.
type TextCompleter interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
