package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nexusai/qa-gate/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a single product listing",
	Long: `Run the QA rubric over one product record.

The record comes either from a JSON file (--file) or from the store
(--id). With --save the result is persisted and the product's listing
status advances to qa_passed/qa_failed.

Examples:
  # Evaluate a record from disk
  check --file product.json

  # Re-check a stored product and persist the verdict
  check --id prod_123 --save

  # Machine-readable output
  check --file product.json --format json`,
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.String("file", "", "path to a JSON product record")
	f.String("id", "", "id of a stored product")
	f.String("format", "table", "output format: table or json")
	f.Bool("save", false, "persist the result and advance the product status")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, _ := cmd.Flags().GetString("file")
	id, _ := cmd.Flags().GetString("id")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")

	if (file == "") == (id == "") {
		return eris.New("check: exactly one of --file or --id is required")
	}
	if format != "table" && format != "json" {
		return eris.Errorf("check: --format must be table or json (got %q)", format)
	}

	env, err := initGate(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	var product *model.ProductRecord
	if file != "" {
		product, err = readProductFile(file)
	} else {
		product, err = env.Store.GetProduct(ctx, id)
	}
	if err != nil {
		return err
	}

	result, err := env.Evaluator.Evaluate(ctx, product)
	if err != nil {
		return eris.Wrapf(err, "check: evaluate %s", product.ID)
	}

	if save {
		if product.ID == "" {
			return eris.New("check: --save requires a record with an id")
		}
		if file != "" {
			product.ConceptKey = result.ConceptKey
			if _, err := env.Store.UpsertProducts(ctx, []model.ProductRecord{*product}); err != nil {
				return eris.Wrap(err, "check: upsert product")
			}
		}
		if err := env.Store.SaveResult(ctx, product.ID, result); err != nil {
			return eris.Wrap(err, "check: save result")
		}
		zap.L().Info("result saved",
			zap.String("product_id", product.ID),
			zap.String("status", string(result.Status)),
		)
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "check: encode result")
	}

	printResult(product, result)
	return nil
}

func readProductFile(path string) (*model.ProductRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "check: read %s", path)
	}
	var p model.ProductRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "check: parse %s", path)
	}
	return &p, nil
}

func printResult(p *model.ProductRecord, r *model.QaResult) {
	fmt.Printf("Product:     %s\n", displayTitle(p))
	fmt.Printf("Concept key: %s\n", r.ConceptKey)
	fmt.Printf("Score:       %d / 100\n", r.Score)
	fmt.Printf("Status:      %s\n", r.Status)
	if len(r.FailReasons) > 0 {
		fmt.Println("\nFail reasons:")
		for _, reason := range r.FailReasons {
			fmt.Printf("  - %s\n", reason)
		}
	}
	if len(r.Details.BannedMatches) > 0 {
		fmt.Printf("\nBanned claims: %s\n", strings.Join(r.Details.BannedMatches, ", "))
	}
	if len(r.Details.Artifact.Notes) > 0 {
		fmt.Println("\nArtifact notes:")
		for _, note := range r.Details.Artifact.Notes {
			fmt.Printf("  - %s\n", note)
		}
	}
}

func displayTitle(p *model.ProductRecord) string {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "(untitled)"
	}
	if p.ID != "" {
		return fmt.Sprintf("%s [%s]", title, p.ID)
	}
	return title
}
