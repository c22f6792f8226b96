// Package prompts builds the language model prompts used by catalog analysis.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// BuildProcessStepAnalysisPrompt renders a process step's filled text fields
// followed by the use cases recorded for it. Earlier model answers
// (llm_comment_N) are left out so analyses do not feed on each other.
func BuildProcessStepAnalysisPrompt(step *models.ProcessStep, useCases []*models.UseCase) string {
	var prompt strings.Builder

	fmt.Fprintf(&prompt, "Process step %s: %s\n", step.BIID, step.Name)
	if step.AreaName != "" {
		fmt.Fprintf(&prompt, "Area: %s\n", step.AreaName)
	}
	for _, c := range models.ProcessStepTextColumns {
		if strings.HasPrefix(c, "llm_comment_") {
			continue
		}
		if v := *step.TextField(c); v != nil && strings.TrimSpace(*v) != "" {
			fmt.Fprintf(&prompt, "\n%s:\n%s\n", strings.ReplaceAll(c, "_", " "), strings.TrimSpace(*v))
		}
	}

	if len(useCases) == 0 {
		prompt.WriteString("\nNo use cases are recorded for this step.\n")
		return prompt.String()
	}

	prompt.WriteString("\nUse cases:\n")
	for _, uc := range useCases {
		fmt.Fprintf(&prompt, "- %s %s", uc.BIID, uc.Name)
		if uc.Priority != nil {
			fmt.Fprintf(&prompt, " (priority %d)", *uc.Priority)
		}
		if uc.Summary != nil && strings.TrimSpace(*uc.Summary) != "" {
			fmt.Fprintf(&prompt, ": %s", strings.TrimSpace(*uc.Summary))
		}
		prompt.WriteString("\n")
	}
	return prompt.String()
}

// BuildProcessStepAnalysisSystemMessage returns the system message for the LLM.
func BuildProcessStepAnalysisSystemMessage() string {
	return `You are a manufacturing process analyst. You review one process step of a
business process catalog together with the use cases proposed for it. Answer in plain prose, at most
300 words: where the step loses time or money, which of the listed use cases address that, and what is
missing. Do not invent systems or figures that are not in the description.`
}
