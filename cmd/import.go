package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nexusai/qa-gate/internal/model"
	"github.com/nexusai/qa-gate/internal/textnorm"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import product records from a JSON file",
	Long: `Load a JSON array of product records into the store. Each record's
concept key is derived from its title before insert, so duplicate
lookups work immediately. Existing records with the same id are
replaced.

Example:
  import --file products.json`,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.String("file", "", "path to a JSON array of product records")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, _ := cmd.Flags().GetString("file")

	env, err := initGate(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	data, err := os.ReadFile(file)
	if err != nil {
		return eris.Wrapf(err, "import: read %s", file)
	}

	var products []model.ProductRecord
	if err := json.Unmarshal(data, &products); err != nil {
		return eris.Wrapf(err, "import: parse %s", file)
	}
	if len(products) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	for i := range products {
		if products[i].ID == "" {
			return eris.Errorf("import: record %d has no id", i)
		}
		products[i].ConceptKey = textnorm.ConceptKey(products[i].Title, env.Vocab)
		if products[i].Status == "" {
			products[i].Status = model.ProductStatusPending
		}
	}

	n, err := env.Store.UpsertProducts(ctx, products)
	if err != nil {
		return eris.Wrap(err, "import: upsert")
	}

	zap.L().Info("import complete",
		zap.String("file", file),
		zap.Int("records", n),
	)
	fmt.Printf("Imported %d product(s) from %s\n", n, file)
	return nil
}
