package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nexusai/qa-gate/internal/textnorm"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find stored listings that share a concept key",
	Long: `Look up potential duplicate listings by concept key. The key comes
either from --key directly, from normalizing a raw title (--title), or
from a stored product's record (--id).

Examples:
  duplicates --title "ChatGPT Prompts for Real Estate (100 Prompts)"
  duplicates --id prod_123
  duplicates --key "chatgpt for real estate"`,
	RunE: runDuplicates,
}

func init() {
	f := duplicatesCmd.Flags()
	f.String("key", "", "concept key to look up")
	f.String("title", "", "raw title to normalize into a concept key")
	f.String("id", "", "stored product whose concept key should be used")
	f.String("exclude", "", "product id to exclude from matches")
	f.Int("limit", 0, "maximum matches to return (0 uses the configured default)")
	f.String("format", "table", "output format: table or json")

	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicates(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key, _ := cmd.Flags().GetString("key")
	title, _ := cmd.Flags().GetString("title")
	id, _ := cmd.Flags().GetString("id")
	exclude, _ := cmd.Flags().GetString("exclude")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	given := 0
	for _, s := range []string{key, title, id} {
		if s != "" {
			given++
		}
	}
	if given != 1 {
		return eris.New("duplicates: exactly one of --key, --title, or --id is required")
	}

	env, err := initGate(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	switch {
	case title != "":
		key = textnorm.ConceptKey(title, env.Vocab)
	case id != "":
		p, err := env.Store.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		key = p.ConceptKey
		if key == "" {
			key = textnorm.ConceptKey(p.Title, env.Vocab)
		}
		if exclude == "" {
			exclude = p.ID
		}
	}

	if limit <= 0 {
		limit = cfg.Sweep.DuplicateLimit
	}

	dups, err := env.Store.FindDuplicates(ctx, key, exclude, limit)
	if err != nil {
		return eris.Wrap(err, "duplicates: lookup")
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(dups), "duplicates: encode")
	}

	fmt.Printf("Concept key: %s\n", key)
	if len(dups) == 0 {
		fmt.Println("No matching listings found.")
		return nil
	}
	fmt.Printf("%d matching listing(s):\n", len(dups))
	for _, d := range dups {
		price := "-"
		if d.Price != nil {
			price = fmt.Sprintf("$%.2f", *d.Price)
		}
		fmt.Printf("  %s  %-8s %8s  %s\n", d.ID, d.Status, price, d.Title)
	}
	return nil
}
