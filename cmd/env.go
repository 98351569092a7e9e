package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nexusai/qa-gate/internal/inspect"
	"github.com/nexusai/qa-gate/internal/qa"
	"github.com/nexusai/qa-gate/internal/store"
	"github.com/nexusai/qa-gate/internal/textnorm"
)

// gateEnv bundles the wired collaborators a command needs.
type gateEnv struct {
	Store     store.Store
	Evaluator *qa.Evaluator
	Vocab     textnorm.Vocabulary
}

func (e *gateEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("store close failed", zap.Error(err))
		}
	}
}

// initGate opens the configured store, runs migrations, and wires the
// evaluator with the configured rubric and vocabulary.
func initGate(ctx context.Context) (*gateEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	vocab := textnorm.DefaultVocabulary()
	if cfg.QA.VocabularyFile != "" {
		vocab, err = textnorm.LoadVocabulary(cfg.QA.VocabularyFile)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
	}

	rubric := qa.DefaultRubric()
	rubric.PassThreshold = cfg.QA.PassThreshold
	if err := qa.Validate(rubric); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	inspector := inspect.New(inspect.Options{
		MinArtifactBytes: cfg.QA.MinArtifactBytes,
		RequireReadme:    cfg.QA.RequireReadme,
		ProbeTimeout:     cfg.QA.ProbeTimeout(),
	})

	return &gateEnv{
		Store:     st,
		Evaluator: qa.NewEvaluator(inspector, rubric, vocab),
		Vocab:     vocab,
	}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
