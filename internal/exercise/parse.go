package exercise

import (
	"fmt"
	"strings"

	"fcetrainer/internal/models"
)

// ParseCloze builds a Part 1 or Part 2 exercise from a row.
// Answers are pipe-delimited; Part 1 options are pipe-delimited groups of
// slash-delimited choices.
func ParseCloze(part models.Part, row Row) (models.ClozeExercise, error) {
	if !part.IsCloze() {
		return models.ClozeExercise{}, fmt.Errorf("part %s is not a cloze part", part)
	}
	if !hasFields(row, part.RequiredFields()) {
		return models.ClozeExercise{}, fmt.Errorf("row is missing required fields for %s", part)
	}

	exercise := models.ClozeExercise{
		Part:    part,
		Title:   strings.TrimSpace(row[models.FieldTitle]),
		Text:    row[models.FieldText],
		Answers: splitTrimmed(row[models.FieldAnswers], "|"),
		URL:     strings.TrimSpace(row[models.FieldURL]),
	}

	if part == models.PartMultipleChoice {
		for _, group := range strings.Split(row[models.FieldOptions], "|") {
			exercise.Options = append(exercise.Options, splitTrimmed(group, "/"))
		}
	}

	return exercise, nil
}

// ParseWordFormation builds a Part 3 item from a row
func ParseWordFormation(row Row) (models.WordFormationItem, error) {
	if !hasFields(row, models.PartWordFormation.RequiredFields()) {
		return models.WordFormationItem{}, fmt.Errorf("row is missing required fields for %s", models.PartWordFormation)
	}
	return models.WordFormationItem{
		Root:     strings.TrimSpace(row[models.FieldRoot]),
		Sentence: row[models.FieldSentence],
		Answer:   strings.TrimSpace(row[models.FieldAnswer]),
	}, nil
}

func splitTrimmed(value, sep string) []string {
	parts := strings.Split(value, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
