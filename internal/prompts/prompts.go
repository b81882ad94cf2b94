package prompts

import (
	"fmt"
	"strings"

	"github.com/tobyn/inkwell/internal/domain"
)

// ============================================================================
// System prompts
// ============================================================================

// SystemPrompt defines the assistant's role for every generation call.
const SystemPrompt = `You are an experienced novelist and developmental editor. You write vivid, coherent long-form fiction and follow the user's constraints exactly. Never include meta commentary, headings about yourself, or apologies in your output.`

// ============================================================================
// Phase prompts
// ============================================================================

// QuestionsPrompt asks for clarifying questions about the premise.
// The model must return one question per line, no numbering.
func QuestionsPrompt(form domain.SubmissionForm, count int) string {
	return fmt.Sprintf(`A writer wants to develop a %s novel titled %q.

Premise:
%s

Ask the %d most useful clarifying questions that would shape the book (characters, stakes, tone, setting, ending). Return exactly one question per line with no numbering and no extra text.`,
		form.Genre, form.Title, form.Premise, count)
}

// DraftPrompt asks for a short narrative draft from the premise and answers.
func DraftPrompt(form domain.SubmissionForm, questions, answers []string) string {
	var qa strings.Builder
	for i, q := range questions {
		a := ""
		if i < len(answers) {
			a = answers[i]
		}
		fmt.Fprintf(&qa, "Q: %s\nA: %s\n", q, a)
	}
	return fmt.Sprintf(`Write a 500-800 word story draft for a %s novel titled %q.

Premise:
%s

The writer answered these development questions:
%s
Capture the arc of the whole book in flowing prose. Style notes: %s`,
		form.Genre, form.Title, form.Premise, qa.String(), form.Style)
}

// OutlinePrompt asks for a chapter-by-chapter outline of the draft.
// Each chapter must appear on its own line as "Title :: one-sentence summary".
func OutlinePrompt(form domain.SubmissionForm, draft string, chapters int) string {
	return fmt.Sprintf(`Turn the following story draft into a chapter outline for a novel of %d chapters.

Draft:
%s

Return exactly one chapter per line in the form:
Title :: one-sentence summary

No numbering, no blank lines, no extra text.`, chapters, draft)
}

// ChapterPrompt asks for the full prose of one chapter.
func ChapterPrompt(form domain.SubmissionForm, outline string, index int, title, summary, previous string) string {
	prior := ""
	if previous != "" {
		tail := previous
		if r := []rune(previous); len(r) > 2000 {
			tail = string(r[len(r)-2000:])
		}
		prior = "The previous chapter ended like this:\n" + tail + "\n\n"
	}
	return fmt.Sprintf(`Write chapter %d, %q, of the novel %q.

Chapter plan: %s

Full outline for context:
%s

%sWrite 1500-2500 words of polished prose. Do not include the chapter title or any headings. Style notes: %s`,
		index, title, form.Title, summary, outline, prior, form.Style)
}

// CritiquePrompt asks for an editorial review of the finished manuscript.
func CritiquePrompt(form domain.SubmissionForm, outline string) string {
	return fmt.Sprintf(`You just finished drafting the novel %q (%s). Here is its outline:

%s

Write a short editorial critique for the author: three strengths, three weaknesses, and the single most valuable revision to make next. Keep it under 300 words.`,
		form.Title, form.Genre, outline)
}

// ============================================================================
// Response parsing helpers
// ============================================================================

// ParseLines splits a one-item-per-line model response, dropping blanks and
// leading list markers the model sometimes adds despite instructions.
func ParseLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. )")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ParseOutline parses "Title :: summary" lines into chapter plans. Lines
// without the separator are kept with the whole line as the title.
func ParseOutline(text string) []ChapterPlan {
	var plans []ChapterPlan
	for _, line := range ParseLines(text) {
		title, summary := line, ""
		if idx := strings.Index(line, "::"); idx != -1 {
			title = strings.TrimSpace(line[:idx])
			summary = strings.TrimSpace(line[idx+2:])
		}
		if title == "" {
			continue
		}
		plans = append(plans, ChapterPlan{Title: title, Summary: summary})
	}
	return plans
}

// ChapterPlan is one planned chapter parsed from the outline response.
type ChapterPlan struct {
	Title   string
	Summary string
}
