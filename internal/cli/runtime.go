package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"github.com/viant/agentvec/backend/memory"
	"github.com/viant/agentvec/backend/milvus"
	"github.com/viant/agentvec/backend/sqlite"
	"github.com/viant/agentvec/collection"
	"github.com/viant/agentvec/encoder"
	"github.com/viant/agentvec/internal/config"
	"github.com/viant/agentvec/internal/logging"
	"github.com/viant/agentvec/vector"
)

// runtime holds the components a command works with.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	svc        vector.Service
	enc        encoder.Encoder
	collection string
	opts       []collection.Option
	closeFn    func() error
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.Configure(cfg.Service.LogLevel)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, collection: cfg.Service.Collection, closeFn: func() error { return nil }}
	if collectionFlag != "" {
		if err := vector.ValidateCollectionName(collectionFlag); err != nil {
			return nil, err
		}
		rt.collection = collectionFlag
	}

	var backend vector.Service
	switch cfg.Service.Backend {
	case config.BackendMemory:
		backend = memory.New()
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite.Path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		backend, rt.closeFn = s, s.Close
	case config.BackendMilvus:
		s, err := milvus.Open(ctx, milvus.Config{URI: cfg.Milvus.URI, Token: cfg.Milvus.Token}, milvus.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		backend = s
		rt.closeFn = func() error { return s.Close(context.Background()) }
	}
	rt.svc = collection.NewResilient(backend, cfg.RetryPolicy(), collection.WithLogger(logger))

	switch cfg.Encoder.Kind {
	case config.EncoderHTTP:
		rt.enc, err = encoder.NewHTTP(ctx, encoder.HTTPConfig{URL: cfg.Encoder.URL, Model: cfg.Encoder.Model, Dim: cfg.Encoder.Dim, Retries: cfg.Encoder.Retries})
	default:
		rt.enc, err = encoder.NewHashing(cfg.Encoder.Dim)
	}
	if err != nil {
		_ = rt.closeFn()
		return nil, err
	}

	indexParams, _ := cfg.IndexParams()
	searchParams, _ := cfg.SearchParams()
	rt.opts = []collection.Option{
		collection.WithLogger(logger),
		collection.WithDimension(cfg.Encoder.Dim),
		collection.WithIndexParams(indexParams),
		collection.WithSearchParams(searchParams),
	}
	logger.Debug("runtime ready", "backend", cfg.Service.Backend, "collection", rt.collection, "encoder", rt.enc.Model())
	return rt, nil
}

func (r *runtime) Close() error { return r.closeFn() }

func (r *runtime) manager() *collection.SchemaManager {
	return collection.NewSchemaManager(r.svc, r.opts...)
}

func (r *runtime) inserter(extra ...collection.Option) *collection.Inserter {
	return collection.NewInserter(r.svc, r.enc, r.collection, append(append([]collection.Option(nil), r.opts...), extra...)...)
}

func (r *runtime) searcher(extra ...collection.Option) *collection.Searcher {
	return collection.NewSearcher(r.svc, r.enc, r.collection, append(append([]collection.Option(nil), r.opts...), extra...)...)
}

func printHeader(title string) {
	color.New(color.FgCyan, color.Bold).Println(title)
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, color.RedString("error: ")+err.Error())
}
