package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claim-intel/internal/agents"
	"github.com/sells-group/claim-intel/internal/claimctx"
	"github.com/sells-group/claim-intel/internal/orchestrator"
	"github.com/sells-group/claim-intel/internal/similarity"
	"github.com/sells-group/claim-intel/internal/statemachine"
	"github.com/sells-group/claim-intel/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("cli"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// coreEnv bundles the wired subsystems most commands need.
type coreEnv struct {
	Store        store.Store
	Machine      *statemachine.Machine
	Agents       agents.Repository
	Searcher     *similarity.Searcher
	Orchestrator *orchestrator.Orchestrator
}

func (e *coreEnv) Close() {
	e.Store.Close() //nolint:errcheck
}

func initCore(ctx context.Context) (*coreEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	machine := statemachine.New(st)
	repo := agents.NewMemoryRepository()
	searcher := similarity.NewSearcher(st, st)
	orch := orchestrator.New(st, machine, claimctx.NewBuilder(st), repo, searcher, orchestrator.Options{
		SimilarLimit:  cfg.Orchestrator.SimilarLimit,
		LookupTimeout: time.Duration(cfg.Orchestrator.LookupTimeoutSecs) * time.Second,
		DedupeActions: cfg.Orchestrator.DedupeActions,
	})

	return &coreEnv{
		Store:        st,
		Machine:      machine,
		Agents:       repo,
		Searcher:     searcher,
		Orchestrator: orch,
	}, nil
}
