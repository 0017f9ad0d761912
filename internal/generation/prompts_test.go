package generation

import (
	"testing"

	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTutorSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		data     TutorPromptData
		contains []string
		excludes []string
	}{
		{
			name:     "subject_and_grade",
			data:     TutorPromptData{Subject: "Mathématiques", Grade: "3e", Format: domain.FormatStandard},
			contains: []string{"Matière : Mathématiques", "de niveau 3e", "en français"},
		},
		{
			name:     "short_format",
			data:     TutorPromptData{Format: domain.FormatShort},
			contains: []string{"brièvement"},
			excludes: []string{"Matière :"},
		},
		{
			name:     "detailed_format",
			data:     TutorPromptData{Format: domain.FormatDetailed},
			contains: []string{"étape par étape"},
		},
		{
			name:     "exercise_format",
			data:     TutorPromptData{Format: domain.FormatExercise},
			contains: []string{"Correction"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := TutorSystemPrompt(tt.data)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, prompt, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, prompt, s)
			}
		})
	}
}

func TestBuildChatMessages(t *testing.T) {
	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "Explique Pythagore"},
	}

	messages, err := BuildChatMessages(TutorPromptData{Subject: "Maths", Format: domain.FormatStandard}, history)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "Maths")
	assert.Equal(t, history[0], messages[1])
}

func TestTruncateInput(t *testing.T) {
	assert.Equal(t, "abc", TruncateInput("  abc  ", 10))
	assert.Equal(t, "éèà", TruncateInput("éèàù", 3))
	assert.Equal(t, "sans limite", TruncateInput("sans limite", 0))
}
