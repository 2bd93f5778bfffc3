package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"patchwright/internal/scope"
)

var scopeReflectionFile string

// scopeCmd derives or parses a scope contract
var scopeCmd = &cobra.Command{
	Use:   "scope [prompt...]",
	Short: "Derive the style-scope contract for a prompt",
	Long: `Analyzes the user's request and prints the style-scope contract as JSON:
targeted requests get scoping enforcement and target hints, whole-app
theming requests get a permissive global contract.

With --reflection, parses a raw planning response into a full scope
reflection instead (the prompt argument is ignored).

Examples:
  patchwright scope change the navbar background to blue
  patchwright scope --reflection response.txt`,
	RunE: runScope,
}

func init() {
	scopeCmd.Flags().StringVar(&scopeReflectionFile, "reflection", "", "File with a raw reflection response to parse")
}

func runScope(cmd *cobra.Command, args []string) error {
	var out any
	switch {
	case scopeReflectionFile != "":
		text, err := readInput([]string{scopeReflectionFile})
		if err != nil {
			return err
		}
		out = scope.ParseReflectionResponse(text)
	case len(args) > 0:
		contract := scope.DeriveStyleScopeContract(strings.Join(args, " "))
		if contract == nil {
			fmt.Println("null")
			return nil
		}
		out = contract
	default:
		return fmt.Errorf("provide a prompt or --reflection file")
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
