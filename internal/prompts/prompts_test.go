package prompts

import (
	"testing"
)

func TestParseLines(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain lines",
			text: "Who is the hero?\nWhere is it set?",
			want: []string{"Who is the hero?", "Where is it set?"},
		},
		{
			name: "numbered list markers stripped",
			text: "1. First question\n2) Second question\n- Third question\n* Fourth question",
			want: []string{"First question", "Second question", "Third question", "Fourth question"},
		},
		{
			name: "blank lines dropped",
			text: "\nOnly line\n\n\n",
			want: []string{"Only line"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLines(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("ParseLines() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestParseOutline(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want []ChapterPlan
	}{
		{
			name: "titles with summaries",
			text: "The map arrives :: A plain envelope\nThe first redraw :: Streets shift",
			want: []ChapterPlan{
				{Title: "The map arrives", Summary: "A plain envelope"},
				{Title: "The first redraw", Summary: "Streets shift"},
			},
		},
		{
			name: "line without separator keeps whole line as title",
			text: "Epilogue",
			want: []ChapterPlan{{Title: "Epilogue"}},
		},
		{
			name: "numbered outline",
			text: "1. One :: a\n2. Two :: b",
			want: []ChapterPlan{
				{Title: "One", Summary: "a"},
				{Title: "Two", Summary: "b"},
			},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseOutline(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("ParseOutline() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("plan %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}
