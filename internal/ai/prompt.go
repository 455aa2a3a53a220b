package ai

import "strings"

const (
	defaultSystemPrompt = "You are an analyst for real-time Twitter monitoring. Provide concise, practical analysis based on the user's request."

	// DefaultMonitorPrompt is used when a monitor has no analysis prompt of
	// its own.
	DefaultMonitorPrompt = "Summarize why this post matters and what to watch next."

	userPromptTemplate = "{{monitor_prompt}}\n\nTwitter post:\n{{post_text}}"
)

// preparePrompts resolves the system and user prompts for one analysis call.
// An empty monitor prompt falls back to DefaultMonitorPrompt.
func preparePrompts(monitorPrompt, postText string) (systemPrompt, userPrompt string) {
	prompt := strings.TrimSpace(monitorPrompt)
	if prompt == "" {
		prompt = DefaultMonitorPrompt
	}

	userPrompt = strings.NewReplacer(
		"{{monitor_prompt}}", prompt,
		"{{post_text}}", strings.TrimSpace(postText),
	).Replace(userPromptTemplate)

	return defaultSystemPrompt, userPrompt
}
