package digest

import (
	"fmt"
	"strings"
)

const stageOnePrompt = `You are an editor preparing a daily briefing on AI and technology.
You will receive several source items separated by "---". Each item has a title or author,
a publication date, a URL and its content.

For every item:
- Write a headline of at most 20 words.
- Write a summary of 2-4 sentences with the concrete facts: who, what, numbers, dates.
- Keep the item's URL on its own line as "Source: <url>".

Do not merge items. Do not invent facts that are not in the input. Skip items with no
substantive content. Output Markdown only, with no preamble.`

const stageTwoPrompt = `You are the lead editor of a daily AI briefing. You will receive batches of
already-summarized items separated by "---".

Produce one coherent digest:
- Group related items under a small number of thematic sections with "##" headings
  (for example: Models & Research, Products, Industry, Community).
- Merge items that report the same event; keep every distinct source URL.
- Order sections and items by importance, most significant first.
- Open with a short "Today's highlights" list of the 3-5 most important developments.

Keep all facts, names and numbers from the input. Output Markdown only, with no preamble.`

const stageThreePrompt = `You are a copy editor. You will receive a Markdown digest.

Polish it for publication without changing its meaning:
- Fix grammar, punctuation and inconsistent formatting.
- Remove duplicated sentences and filler.
- Make headings consistent and keep every link intact.
- Do not add new information and do not wrap the output in a code block.

Return only the edited Markdown.`

const analysisPrompt = `You are an industry analyst. You will receive today's AI and technology news
items separated by "---".

Write a short analysis in Markdown:
- "## Trends": 3-5 bullet points on patterns across the items.
- "## Why it matters": one paragraph on the most consequential development.
- "## What to watch": 2-3 bullet points on likely follow-ups.

Base every claim on the input. Output Markdown only, with no preamble.`

const podcastPromptTemplate = `You are the scriptwriter for the podcast "%s". You will receive today's
Markdown digest.

Turn it into a spoken script for a single host:
- Begin exactly with this opening line: %s
- Cover every section of the digest in a natural, conversational tone, with short
  transitions between topics.
- Read numbers and abbreviations the way a host would say them aloud.
- Leave out URLs, Markdown symbols and stage directions.
- End exactly with this closing line: %s

Return only the script text.`

// Prompts holds the instruction text for each stage.
type Prompts struct {
	StageOne   string
	StageTwo   string
	StageThree string
	Analysis   string
	Podcast    string
}

// DefaultPrompts fills in the podcast template. With translate set, every
// stage is asked to write in Simplified Chinese.
func DefaultPrompts(title, begin, end string, translate bool) Prompts {
	p := Prompts{
		StageOne:   stageOnePrompt,
		StageTwo:   stageTwoPrompt,
		StageThree: stageThreePrompt,
		Analysis:   analysisPrompt,
		Podcast:    fmt.Sprintf(podcastPromptTemplate, title, begin, end),
	}
	if translate {
		p.StageOne = withLanguage(p.StageOne)
		p.StageTwo = withLanguage(p.StageTwo)
		p.StageThree = withLanguage(p.StageThree)
		p.Analysis = withLanguage(p.Analysis)
		p.Podcast = withLanguage(p.Podcast)
	}
	return p
}

func withLanguage(prompt string) string {
	return strings.TrimSpace(prompt) + "\n\nWrite the output in Simplified Chinese, keeping product and company names in their original form."
}
