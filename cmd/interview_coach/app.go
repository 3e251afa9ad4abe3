package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/interview-coach/internal/account"
	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/export"
	"github.com/jonathan/interview-coach/internal/history"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/logging"
	"github.com/jonathan/interview-coach/internal/memstore"
	"github.com/jonathan/interview-coach/internal/rendering"
	"github.com/jonathan/interview-coach/internal/report"
	"github.com/jonathan/interview-coach/internal/speech"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// artifactStore is implemented by both *db.DB and *memstore.Store.
type artifactStore interface {
	interview.Store
	report.Store
	history.Store
	account.Store
	Close()
}

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	log    logging.Logger
	store  artifactStore
	gen    llm.Client
	speech speech.Service
}

// needs selects what newApp wires.
type needs struct {
	generator bool
	speech    bool
}

func loadConfig(req config.Requirements) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(req); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, n needs) (*app, error) {
	if storeKind != storePostgres && storeKind != storeMemory {
		return nil, fmt.Errorf("invalid --store %q: must be postgres or memory", storeKind)
	}
	cfg, err := loadConfig(config.Requirements{
		Database:  storeKind == storePostgres,
		Generator: n.generator,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level),
		speech: speech.Disabled{},
	}

	if storeKind == storeMemory {
		a.store = memstore.New()
	} else {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.store = database
	}

	if n.generator {
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.gen = client
		if cfg.Generator.RPS > 0 {
			a.gen = llm.RateLimited(client, cfg.Generator.RPS, cfg.Generator.Burst)
		}
	}

	if n.speech && cfg.Speech.Enabled && cfg.APIKey != "" {
		sp, err := speech.NewGemini(ctx, cfg.APIKey, cfg.Speech.Voice)
		if err != nil {
			a.close()
			return nil, err
		}
		a.speech = sp
	}

	return a, nil
}

// close releases the Generator and the store on every exit path.
func (a *app) close() {
	if a.gen != nil {
		if err := a.gen.Close(); err != nil {
			a.log.Warn(context.Background(), "failed to close LLM client", "error", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}

func (a *app) leaseTTL() time.Duration {
	return time.Duration(a.cfg.LeaseTTL)
}

func (a *app) pipeline() *report.Pipeline {
	return report.New(a.store, a.gen, a.log, a.leaseTTL())
}

// publisher returns the S3 publisher when configured, otherwise a local one
// rooted at dir. Local downloads are signed when a base URL and a signing
// secret are both set.
func (a *app) publisher(dir, baseURL string) (export.Publisher, *export.LocalPublisher, error) {
	if a.cfg.Export.S3.Enabled() {
		pub, err := export.NewS3Publisher(a.cfg.Export.S3)
		if err != nil {
			return nil, nil, err
		}
		return pub, nil, nil
	}

	var signer *export.Signer
	if baseURL != "" && a.cfg.Export.SigningSecret != "" {
		dl, err := a.cfg.Download()
		if err != nil {
			return nil, nil, err
		}
		signer = export.NewSigner(dl)
	}
	local := export.NewLocalPublisher(dir, baseURL, signer)
	return local, local, nil
}

func (a *app) exporter(p *report.Pipeline, renderer, dir, baseURL string) (*export.Service, *export.LocalPublisher, error) {
	r, err := rendering.New(renderer)
	if err != nil {
		return nil, nil, err
	}
	pub, local, err := a.publisher(dir, baseURL)
	if err != nil {
		return nil, nil, err
	}
	return export.NewService(p, r, pub, a.log), local, nil
}
