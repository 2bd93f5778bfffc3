package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"patchwright/internal/extract"
)

var (
	extractKey   string
	extractArray bool
	extractLoose bool
)

// extractCmd recovers JSON from noisy model output
var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Recover a JSON object or array from noisy text",
	Long: `Scans text for the first balanced JSON span, tolerating prose wrapping,
smart quotes, comments, and other model-output noise. Reads from the file
argument, or stdin when none is given.

Examples:
  patchwright extract response.txt
  patchwright extract --key edits response.txt
  cat response.txt | patchwright extract --loose`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractKey, "key", "", "Require the object to contain this top-level key")
	extractCmd.Flags().BoolVar(&extractArray, "array", false, "Extract an array instead of an object")
	extractCmd.Flags().BoolVar(&extractLoose, "loose", false, "Repair loose JSON syntax and print strict JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readInput(args)
	if err != nil {
		return err
	}

	var span string
	switch {
	case extractKey != "":
		span = extract.ObjectWithKey(text, extractKey)
	case extractArray:
		span = extract.Array(text)
	default:
		span = extract.Object(text)
	}
	if span == "" {
		return fmt.Errorf("no balanced JSON span found in input")
	}

	if extractLoose {
		parsed := extract.ParseLoose(span)
		if parsed == nil {
			return fmt.Errorf("extracted span could not be repaired into valid JSON")
		}
		out, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(span)
	return nil
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
