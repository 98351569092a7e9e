package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nexusai/qa-gate/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect an artifact without scoring it",
	Long: `Inspect a local artifact file or a remote artifact URL and print
what the evaluator would see: size, README presence, detected prompt
count, and any notes. Useful for debugging a failing artifact check
before re-running the full rubric.

Examples:
  inspect --path ./drop.zip
  inspect --url https://cdn.example.com/drop.zip --format json`,
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.String("path", "", "local artifact path")
	f.String("url", "", "remote artifact URL")
	f.String("format", "table", "output format: table or json")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, _ := cmd.Flags().GetString("path")
	url, _ := cmd.Flags().GetString("url")
	format, _ := cmd.Flags().GetString("format")

	if path == "" && url == "" {
		return eris.New("inspect: --path or --url is required")
	}

	inspector := inspect.New(inspect.Options{
		MinArtifactBytes: cfg.QA.MinArtifactBytes,
		RequireReadme:    cfg.QA.RequireReadme,
		ProbeTimeout:     cfg.QA.ProbeTimeout(),
	})

	res := inspector.Inspect(ctx, path, url)

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "inspect: encode result")
	}

	fmt.Printf("Present:      %t\n", res.Present)
	if res.SizeBytes != nil {
		fmt.Printf("Size:         %d bytes\n", *res.SizeBytes)
	} else {
		fmt.Println("Size:         unknown")
	}
	if res.HasReadme != nil {
		fmt.Printf("Has README:   %t\n", *res.HasReadme)
	}
	if res.PromptCountDetected != nil {
		fmt.Printf("Prompt count: %d\n", *res.PromptCountDetected)
	}
	if res.TooSmall {
		fmt.Println("Flag:         too small")
	}
	if res.MissingReadme {
		fmt.Println("Flag:         missing README")
	}
	for _, note := range res.Notes {
		fmt.Printf("Note:         %s\n", note)
	}
	return nil
}
