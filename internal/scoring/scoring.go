// Package scoring compares submitted answers with canonical answers and
// rebuilds exercise texts with the canonical answers filled in.
// Every function here is pure.
package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"fcetrainer/internal/models"
)

// Rule selects how answers are normalized before comparison
type Rule int

const (
	// RuleExact trims whitespace and compares case-sensitively (Part 1)
	RuleExact Rule = iota
	// RuleFold trims whitespace and compares case-insensitively (Part 2)
	RuleFold
)

// MissingAnswer is shown in feedback for a gap the trainee left empty
const MissingAnswer = "None"

// RuleFor returns the comparison rule of a cloze part
func RuleFor(part models.Part) Rule {
	if part == models.PartOpenCloze {
		return RuleFold
	}
	return RuleExact
}

func (r Rule) normalize(s string) string {
	s = strings.TrimSpace(s)
	if r == RuleFold {
		s = strings.ToLower(s)
	}
	return s
}

// GapResult is the outcome of one gap
type GapResult struct {
	Gap       int // 1-based gap number
	Submitted string
	Canonical string
	Match     bool
	Missing   bool
}

// ClozeResult is the outcome of a whole cloze submission
type ClozeResult struct {
	Gaps    []GapResult
	Correct int
	Total   int
}

// Percentage returns the share of correct gaps
func (r ClozeResult) Percentage() float64 {
	return Percentage(r.Correct, r.Total)
}

// Percentage returns score/total as a percentage, 0 when total is 0
func Percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

// ScoreCloze compares submitted answers gap by gap. There is one result per
// canonical answer; extra submissions are ignored and absent or blank ones
// never match.
func ScoreCloze(submitted, canonical []string, rule Rule) ClozeResult {
	result := ClozeResult{
		Gaps:  make([]GapResult, len(canonical)),
		Total: len(canonical),
	}

	for i, answer := range canonical {
		gap := GapResult{
			Gap:       i + 1,
			Canonical: strings.TrimSpace(answer),
			Submitted: MissingAnswer,
		}

		if i < len(submitted) && strings.TrimSpace(submitted[i]) != "" {
			gap.Submitted = strings.TrimSpace(submitted[i])
			gap.Match = rule.normalize(submitted[i]) == rule.normalize(answer)
		} else {
			gap.Missing = true
		}

		if gap.Match {
			result.Correct++
		}
		result.Gaps[i] = gap
	}

	return result
}

var gapMarker = regexp.MustCompile(`_([1-9]\d*)_`)

// Segment is a piece of exercise text: plain text, or a gap with its answer
type Segment struct {
	Text   string
	Gap    int // 0 for plain text
	Answer string
}

// Segments splits text around its gap markers. Markers numbered beyond the
// answer list stay in the text unsubstituted.
func Segments(text string, answers []string) []Segment {
	var segments []Segment
	last := 0

	for _, loc := range gapMarker.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || n < 1 || n > len(answers) {
			continue
		}
		if loc[0] > last {
			segments = append(segments, Segment{Text: text[last:loc[0]]})
		}
		segments = append(segments, Segment{Gap: n, Answer: answers[n-1]})
		last = loc[1]
	}

	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}
	return segments
}

// Reconstruct fills every gap marker with its canonical answer
func Reconstruct(text string, answers []string) string {
	var b strings.Builder
	for _, seg := range Segments(text, answers) {
		if seg.Gap > 0 {
			b.WriteString(seg.Answer)
		} else {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

// CountMarkers returns the number of gap markers left in text
func CountMarkers(text string) int {
	return len(gapMarker.FindAllStringIndex(text, -1))
}

// WordFormationResult is the outcome of one Part 3 question
type WordFormationResult struct {
	Submitted string
	Canonical string
	Match     bool
	TimedOut  bool
	Correct   bool // counts toward the score
}

// ScoreWordFormation compares one answer, trimmed and case-insensitively.
// A timed-out question is never correct, whatever was typed.
func ScoreWordFormation(submitted, canonical string, timedOut bool) WordFormationResult {
	match := RuleFold.normalize(submitted) == RuleFold.normalize(canonical)
	return WordFormationResult{
		Submitted: strings.TrimSpace(submitted),
		Canonical: strings.TrimSpace(canonical),
		Match:     match,
		TimedOut:  timedOut,
		Correct:   match && !timedOut,
	}
}

// ReconstructSentence fills the word formation gap with the upper-cased answer
func ReconstructSentence(sentence, answer string) string {
	return strings.ReplaceAll(sentence, models.WordFormationGap, strings.ToUpper(strings.TrimSpace(answer)))
}
