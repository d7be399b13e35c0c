package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fcetrainer/internal/config"
	"fcetrainer/internal/exercise"
	"fcetrainer/internal/models"
)

var validatePart string

// validateCmd loads every data source and reports what is usable
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the exercise data sources",
	Long: `Load the CSV data source of each part and report how many rows were read,
how many are usable and how many were skipped as malformed.

Exits with an error when a checked part has no usable exercises.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validatePart, "part", "", "Only check one part (p1, p2 or p3)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store := exercise.NewStore(map[models.Part]string{
		models.PartMultipleChoice: cfg.MultipleChoiceFile,
		models.PartOpenCloze:      cfg.OpenClozeFile,
		models.PartWordFormation:  cfg.WordFormationFile,
	})
	store.Debug = cfg.Debug

	parts := models.Parts
	if validatePart != "" {
		part, ok := models.ParsePart(validatePart)
		if !ok {
			return fmt.Errorf("unknown part %q", validatePart)
		}
		parts = []models.Part{part}
	}

	// Load every part at once, then report in a fixed order
	type checked struct {
		stats exercise.LoadStats
		err   error
	}
	results := make([]checked, len(parts))

	var g errgroup.Group
	for i, part := range parts {
		g.Go(func() error {
			var err error
			if part.IsCloze() {
				_, err = store.ClozePool(part)
			} else {
				_, err = store.WordFormationPool()
			}
			results[i] = checked{stats: store.Stats(part), err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	failed := 0
	for i, part := range parts {
		stats, err := results[i].stats, results[i].err

		fmt.Fprintf(out, "%s\n", part.Title())
		fmt.Fprintf(out, "  source:  %s\n", store.Source(part))
		if !stats.Found {
			fmt.Fprintf(out, "  status:  missing or unreadable\n")
			failed++
			continue
		}
		fmt.Fprintf(out, "  rows:    %d\n", stats.Loaded)
		fmt.Fprintf(out, "  usable:  %d\n", stats.Valid)
		fmt.Fprintf(out, "  dropped: %d\n", stats.Dropped())
		fmt.Fprintf(out, "  skipped: %d\n", stats.Skipped)
		if err != nil {
			fmt.Fprintf(out, "  status:  unavailable\n")
			failed++
			continue
		}
		fmt.Fprintf(out, "  status:  ok\n")
	}

	if failed > 0 {
		return fmt.Errorf("%d part(s) have no usable exercises", failed)
	}
	return nil
}
