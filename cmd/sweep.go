package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nexusai/qa-gate/internal/model"
	"github.com/nexusai/qa-gate/internal/store"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate a batch of stored products",
	Long: `Evaluate every stored product matching the filter and persist each
verdict. Products sharing a concept key with an already-stored listing
are flagged as potential duplicates unless they belong to the same
variant group.

Examples:
  # Check everything still pending review
  sweep --status pending

  # Re-check the first 50 drafts
  sweep --status draft --limit 50`,
	RunE: runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.String("status", string(model.ProductStatusPending), "only evaluate products with this listing status (empty for all)")
	f.Int("limit", 100, "maximum number of products to evaluate")
	f.Bool("dry-run", false, "evaluate without persisting results")

	rootCmd.AddCommand(sweepCmd)
}

type sweepOutcome struct {
	product model.ProductRecord
	result  *model.QaResult
	err     error
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	env, err := initGate(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	products, err := env.Store.ListProducts(ctx, store.ProductFilter{
		Status: model.ProductStatus(status),
		Limit:  limit,
	})
	if err != nil {
		return eris.Wrap(err, "sweep: list products")
	}
	if len(products) == 0 {
		fmt.Println("No products matched the filter.")
		return nil
	}

	zap.L().Info("sweep started",
		zap.Int("products", len(products)),
		zap.String("status", status),
		zap.Bool("dry_run", dryRun),
	)

	var mu sync.Mutex
	outcomes := make([]sweepOutcome, 0, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Sweep.MaxConcurrentProducts)

	for _, p := range products {
		p := p
		g.Go(func() error {
			out := sweepOutcome{product: p}
			result, err := env.Evaluator.Evaluate(gctx, &p)
			if err != nil {
				// One bad record must not sink the batch.
				out.err = err
				zap.L().Error("evaluation failed",
					zap.String("product_id", p.ID),
					zap.Error(err),
				)
			} else {
				out.result = result
				if !dryRun {
					if err := env.Store.SaveResult(gctx, p.ID, result); err != nil {
						out.err = eris.Wrapf(err, "save result for %s", p.ID)
						zap.L().Error("save failed",
							zap.String("product_id", p.ID),
							zap.Error(err),
						)
					}
				}
			}

			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "sweep: wait")
	}

	printSweepSummary(ctx, env, outcomes, dryRun)
	return nil
}

func printSweepSummary(ctx context.Context, env *gateEnv, outcomes []sweepOutcome, dryRun bool) {
	var passed, failed, errored int
	for _, out := range outcomes {
		switch {
		case out.err != nil:
			errored++
		case out.result.Status == model.QaStatusPassed:
			passed++
		default:
			failed++
		}
	}

	fmt.Printf("\nSweep complete: %d evaluated (%d passed, %d failed, %d errors)\n",
		len(outcomes), passed, failed, errored)
	if dryRun {
		fmt.Println("Dry run: no results were persisted.")
	}

	for _, out := range outcomes {
		if out.result == nil {
			continue
		}
		marker := "PASS"
		if out.result.Status != model.QaStatusPassed {
			marker = "FAIL"
		}
		fmt.Printf("  [%s] %3d  %s\n", marker, out.result.Score, displayTitle(&out.product))
		for _, reason := range out.result.FailReasons {
			fmt.Printf("           - %s\n", reason)
		}
		warnDuplicates(ctx, env, out.product, out.result)
	}
}

// warnDuplicates reports other stored listings that share a concept key.
// Records in the same variant group are expected to collide and are
// skipped.
func warnDuplicates(ctx context.Context, env *gateEnv, p model.ProductRecord, r *model.QaResult) {
	if p.InVariantGroup() || r.ConceptKey == "" {
		return
	}
	dups, err := env.Store.FindDuplicates(ctx, r.ConceptKey, p.ID, cfg.Sweep.DuplicateLimit)
	if err != nil {
		zap.L().Warn("duplicate lookup failed",
			zap.String("product_id", p.ID),
			zap.Error(err),
		)
		return
	}
	for _, d := range dups {
		fmt.Printf("           ! possible duplicate of %s (%s, %s)\n", d.ID, d.Title, d.Status)
	}
}
