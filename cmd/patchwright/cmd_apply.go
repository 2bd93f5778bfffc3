package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"patchwright/internal/apply"
	"patchwright/internal/config"
	"patchwright/internal/edit"
	"patchwright/internal/logging"
	"patchwright/internal/scope"
	ws "patchwright/internal/workspace"
)

var (
	applyReflectionFile string
	applyGoal           string
	applyDryRun         bool
)

// applyCmd parses and applies an edit list to the workspace
var applyCmd = &cobra.Command{
	Use:   "apply [edits-file]",
	Short: "Apply a planned edit list to the workspace",
	Long: `Parses an edit list from raw planning output (tolerant of prose wrapping
and loose JSON), optionally validates it against a scope reflection, and
applies the edits to the workspace directory.

The batch is sequential and aborts on the first failure; edits applied
before the failure stay in place.

Examples:
  patchwright apply edits.txt
  patchwright apply --reflection reflection.txt --goal "fix the navbar" edits.txt
  cat edits.txt | patchwright apply --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyReflectionFile, "reflection", "", "Scope reflection file to validate edits against")
	applyCmd.Flags().StringVar(&applyGoal, "goal", "", "Goal prompt (enables repair escalation context)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Parse and validate only, do not write files")
}

func runApply(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspace()
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.Path(root))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Initialize(root); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Close()

	raw, err := readInput(args)
	if err != nil {
		return err
	}
	edits := edit.ParseOperations(raw)
	if len(edits) == 0 {
		return fmt.Errorf("no valid edit operations found in input")
	}
	logger.Info("parsed edit list", zap.Int("edits", len(edits)))

	if applyReflectionFile != "" {
		text, err := readInput([]string{applyReflectionFile})
		if err != nil {
			return err
		}
		reflection := scope.ParseReflectionResponse(text)
		if v := scope.ValidateEdits(edits, &reflection); v != nil {
			return fmt.Errorf("edit rejected by scope contract: %s (%s)", v.Message, v.Type)
		}
	}

	if applyDryRun {
		for _, op := range edits {
			fmt.Printf("%s\t%s\n", op.Kind, op.Path)
		}
		return nil
	}

	store := ws.NewStore(root,
		ws.WithIgnoreDirs(cfg.Workspace.IgnoreDirs),
		ws.WithMaxFileSize(cfg.Workspace.MaxFileSize),
	)
	known, err := store.KnownPaths()
	if err != nil {
		return fmt.Errorf("failed to scan workspace: %w", err)
	}

	goal := applyGoal
	if !cfg.Apply.EnableEscalation {
		// An empty goal prompt disables repair escalation in the engine.
		goal = ""
	}

	engine := apply.NewEngine(store, nil, nil, zapEventSink{logger})
	outcome, err := engine.Apply(cmd.Context(), filepath.Base(root), edits, apply.Options{
		Source:     cfg.Apply.Source,
		KnownPaths: known,
		GoalPrompt: goal,
		Stage:      cfg.Apply.Stage,
		OnFile: func(ev apply.FileEvent) {
			fmt.Printf("%s\t%s\n", ev.Type, ev.Path)
		},
	})
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	fmt.Printf("applied %d edit(s), skipped %d\n", outcome.Applied, outcome.Skipped)
	return nil
}

// zapEventSink adapts the CLI logger to the engine's event interface.
type zapEventSink struct {
	l *zap.Logger
}

func (s zapEventSink) Event(event string, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	s.l.Info(event, zf...)
}
