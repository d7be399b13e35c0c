package models

import "strings"

// Part identifies one of the three exam parts
type Part string

const (
	PartMultipleChoice Part = "p1"
	PartOpenCloze      Part = "p2"
	PartWordFormation  Part = "p3"
)

// Column names used by the exercise data sources
const (
	FieldTitle    = "Title"
	FieldText     = "Text"
	FieldAnswers  = "Answers"
	FieldOptions  = "Options"
	FieldURL      = "URL"
	FieldRoot     = "Root"
	FieldSentence = "Sentence"
	FieldAnswer   = "Answer"
)

// WordFormationGap is the fixed gap marker in a word formation sentence
const WordFormationGap = "______"

// Parts lists every part in menu order
var Parts = []Part{PartMultipleChoice, PartOpenCloze, PartWordFormation}

// ParsePart converts a route or snapshot tag into a Part
func ParsePart(s string) (Part, bool) {
	for _, p := range Parts {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// IsCloze reports whether the part is a single-text cloze exercise (Parts 1 and 2)
func (p Part) IsCloze() bool {
	return p == PartMultipleChoice || p == PartOpenCloze
}

// Title returns the display name of the part
func (p Part) Title() string {
	switch p {
	case PartMultipleChoice:
		return "Part 1: Multiple Choice Cloze"
	case PartOpenCloze:
		return "Part 2: Open Cloze"
	case PartWordFormation:
		return "Part 3: Word Formation"
	}
	return string(p)
}

// RequiredFields returns the columns a row must carry to be usable for the part
func (p Part) RequiredFields() []string {
	switch p {
	case PartMultipleChoice:
		return []string{FieldTitle, FieldText, FieldAnswers, FieldOptions}
	case PartOpenCloze:
		return []string{FieldTitle, FieldText, FieldAnswers}
	case PartWordFormation:
		return []string{FieldRoot, FieldSentence, FieldAnswer}
	}
	return nil
}

// ClozeExercise is a validated Part 1 or Part 2 record
type ClozeExercise struct {
	Part    Part
	Title   string
	Text    string
	Answers []string
	Options [][]string // one group of choices per gap, Part 1 only
	URL     string
}

// GapCount is the number of gaps the exercise expects answers for
func (e ClozeExercise) GapCount() int {
	return len(e.Answers)
}

// OptionsFor returns the choices for a zero-based gap, or nil when the gap has none
func (e ClozeExercise) OptionsFor(gap int) []string {
	if gap < 0 || gap >= len(e.Options) {
		return nil
	}
	return e.Options[gap]
}

// Fields converts the exercise back into its source row representation
func (e ClozeExercise) Fields() map[string]string {
	fields := map[string]string{
		FieldTitle:   e.Title,
		FieldText:    e.Text,
		FieldAnswers: strings.Join(e.Answers, "|"),
	}
	if len(e.Options) > 0 {
		groups := make([]string, len(e.Options))
		for i, group := range e.Options {
			groups[i] = strings.Join(group, "/")
		}
		fields[FieldOptions] = strings.Join(groups, "|")
	}
	if e.URL != "" {
		fields[FieldURL] = e.URL
	}
	return fields
}

// WordFormationItem is a validated Part 3 record
type WordFormationItem struct {
	Root     string
	Sentence string
	Answer   string
}

// Fields converts the item back into its source row representation
func (w WordFormationItem) Fields() map[string]string {
	return map[string]string{
		FieldRoot:     w.Root,
		FieldSentence: w.Sentence,
		FieldAnswer:   w.Answer,
	}
}
