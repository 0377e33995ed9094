package llm

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/koscakluka/huddle-core/core/conversations"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

const (
	roleInstruction      = "Respond naturally as this agent. Remember: 2-3 sentences max, conversational tone, address colleagues by name."
	synthesisInstruction = "Write the team's final recommendation for the patient now."
	followUpInstruction  = "Decide whether to ask the patient a follow-up question."
)

var prompts = template.Must(template.ParseFS(promptFiles, "prompts/*.tmpl"))

type casePromptData struct {
	conversations.TurnContext
	Instruction string
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// systemPromptFor returns the persona prompt of a role. Roles without a
// dedicated prompt get one built from their description.
func systemPromptFor(role conversations.Role) (string, error) {
	name := string(role.ID) + ".tmpl"
	if prompts.Lookup(name) == nil {
		return render("generic.tmpl", role)
	}
	return render(name, nil)
}

func casePrompt(turn conversations.TurnContext, instruction string) (string, error) {
	return render("case.tmpl", casePromptData{TurnContext: turn, Instruction: instruction})
}
