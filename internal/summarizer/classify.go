package summarizer

import "strings"

// classifyRule maps diagnostic substrings to a user-meaningful
// message. Rules are evaluated top to bottom and the first match
// wins, so more specific rules must stay above generic ones: quota
// errors mention "rate limit" and must not fall through to a
// rate-limiting catch-all further down.
type classifyRule struct {
	substrings []string
	message    string
}

var classifyRules = []classifyRule{
	{
		substrings: []string{"google_cloud_project_id", "configurationerror", "project id"},
		message:    "summarizer is missing its cloud project configuration (set GOOGLE_CLOUD_PROJECT_ID)",
	},
	{
		substrings: []string{"could not automatically determine credentials", "unauthenticated", "permission denied", "credentials"},
		message:    "cloud authentication failed (run `gcloud auth application-default login`)",
	},
	{
		substrings: []string{"quota", "resource has been exhausted", "resource exhausted", "429", "rate limit"},
		message:    "API quota exceeded, retry later or lower the concurrency",
	},
	{
		substrings: []string{"video is unavailable", "private video", "unsupported uri", "failed to fetch", "not found"},
		message:    "video is inaccessible to the summarizer",
	},
}

// ClassifyError reduces raw summarizer diagnostics to one of a small
// set of actionable messages, falling back to the (truncated) raw
// text for unrecognized failures.
func ClassifyError(raw string) string {
	lower := strings.ToLower(raw)
	for _, rule := range classifyRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.message
			}
		}
	}

	msg := strings.TrimSpace(raw)
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if msg == "" {
		msg = "summarizer failed with no diagnostic output"
	}
	return "summarizer failed: " + msg
}
