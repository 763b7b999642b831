package digest

import "strings"

// Defence removes code fences wrapping the whole text, such as
// "```markdown\n...\n```". Text that isn't fully fenced is returned as is.
// Nested wrappers are all removed, so Defence(Defence(s)) == Defence(s).
func Defence(text string) string {
	for {
		inner, ok := unwrapFence(text)
		if !ok {
			return text
		}
		text = inner
	}
}

func unwrapFence(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return "", false
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return "", false
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return "", false
	}
	// The opening line may carry a language tag but nothing else.
	tag := strings.TrimSpace(strings.TrimPrefix(lines[0], "```"))
	if strings.ContainsAny(tag, "` \t") {
		return "", false
	}
	return strings.Join(lines[1:len(lines)-1], "\n"), true
}
