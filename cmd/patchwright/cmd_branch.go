package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"patchwright/internal/branch"
)

var (
	branchResponse string
	branchFallback string
)

// branchCmd derives a branch identifier from a prompt or model response
var branchCmd = &cobra.Command{
	Use:   "branch [prompt...]",
	Short: "Derive a kebab-case branch name",
	Long: `Derives a short kebab-case identifier for a change. With --response,
extracts the name a model suggested from its raw output; otherwise builds
one directly from the prompt words.

Examples:
  patchwright branch fix the navbar background color
  patchwright branch --response suggestion.txt make the header sticky`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBranch,
}

func init() {
	branchCmd.Flags().StringVar(&branchResponse, "response", "", "File with raw model output to extract the name from")
	branchCmd.Flags().StringVar(&branchFallback, "fallback", "patchwright-change", "Name used when nothing usable is found")
}

func runBranch(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	name := ""
	if branchResponse != "" {
		text, err := readInput([]string{branchResponse})
		if err != nil {
			return err
		}
		name = branch.ExtractBranchName(text, branchFallback)
		if !branch.IsRelevantToPrompt(name, prompt) {
			name = ""
		}
	}
	if name == "" || name == branchFallback {
		name = branch.FallbackNameFromPrompt(prompt, branchFallback)
	}

	fmt.Println(name)
	return nil
}
