package llm

import (
	"github.com/finch-review/finch/internal/core"
)

// ReviewPromptData is a type-safe struct for rendering review prompts.
type ReviewPromptData struct {
	Title       string
	Description string
	Files       []core.ChangedFile
	MaxComments int
}

// BuildReviewMessages renders the system and user prompts for one review call.
func BuildReviewMessages(pm *PromptManager, pr *core.PRContext, maxComments int) ([]Message, error) {
	data := ReviewPromptData{
		Title:       pr.Title,
		Description: pr.Description,
		Files:       pr.ChangedFiles,
		MaxComments: maxComments,
	}

	system, err := pm.Render(ReviewSystemPrompt, DefaultProvider, data)
	if err != nil {
		return nil, err
	}
	user, err := pm.Render(CodeReviewPrompt, DefaultProvider, data)
	if err != nil {
		return nil, err
	}

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil
}
