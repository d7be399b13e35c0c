package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fcetrainer/internal/config"
	"fcetrainer/internal/service"
)

var (
	exportOutput  string
	importReplace bool
	importYes     bool
)

// historyCmd groups the attempt history commands
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Export or import the attempt history",
	Long: `Move the attempt history between installations as a JSON file.

Available subcommands:
  export - Write every recorded attempt to a JSON file
  import - Load attempts from a JSON export`,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every recorded attempt to a JSON file",
	Long: `Write every recorded attempt to a JSON file.

Use --output - to write to standard output.`,
	Args: cobra.NoArgs,
	RunE: runHistoryExport,
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load attempts from a JSON export",
	Long: `Load attempts from a JSON export in one transaction.

By default the attempts are added to the existing history. With --replace the
existing history is deleted first, after confirmation.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryImport,
}

func init() {
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: attempts_YYYYMMDD_HHMMSS.json)")
	historyImportCmd.Flags().BoolVar(&importReplace, "replace", false, "Delete the existing history before importing (destructive)")
	historyImportCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "Do not ask for confirmation")
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	history := service.NewHistoryService(db)

	if exportOutput == "-" {
		_, err := history.Export(cmd.OutOrStdout())
		return err
	}

	outputPath := exportOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("attempts_%s.json", time.Now().Format("20060102_150405"))
	}
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}

	count, err := history.Export(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d attempts to %s\n", count, outputPath)
	return nil
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", inputPath, err)
	}
	defer f.Close()

	if importReplace && !importYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "WARNING: This will delete the existing attempt history. Type 'yes' to confirm: ")
		if err != nil {
			return err
		}
		if !ok {
			log.Println("Import cancelled")
			return nil
		}
	}

	cfg := config.Load()
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := service.NewHistoryService(db).Import(f, importReplace)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d attempts from %s\n", count, inputPath)
	return nil
}

// confirm asks a yes/no question and reports whether the answer was "yes"
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.TrimSpace(answer) == "yes", nil
}
