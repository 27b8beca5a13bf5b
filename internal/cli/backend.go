package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/config"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/datastore"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/engine"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/store"
)

type executor interface {
	engine.Executor
	Close(ctx context.Context) error
}

// openExecutor connects to the document store.
var openExecutor = func(ctx context.Context, cfg config.MongoConfig) (executor, error) {
	exec, err := datastore.Connect(ctx, datastore.Config{
		URI:      cfg.URI,
		Database: cfg.Database,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return exec, nil
}

// backend is an engine plus the connections it owns.
type backend struct {
	engine *engine.Engine
	exec   executor
	meta   *store.Store
}

// openBackend connects the datastore and, when a metadata path is
// configured, the custom-field store.
func openBackend(ctx context.Context, opts *RootOptions) (*backend, error) {
	exec, err := openExecutor(ctx, opts.Config.Mongo)
	if err != nil {
		return nil, fmt.Errorf("datastore: %w", err)
	}
	b := &backend{exec: exec}

	var meta engine.MetadataSource
	if path := opts.Config.Metadata.Path; path != "" {
		st, err := store.Open(path)
		if err != nil {
			_ = exec.Close(ctx)
			return nil, fmt.Errorf("metadata store: %w", err)
		}
		b.meta = st
		meta = st
	}

	b.engine = engine.New(exec, meta,
		engine.WithPageLimits(opts.Config.Limits.PageLimits()),
		engine.WithDefaultPageSize(opts.Config.Limits.DefaultPageSize),
		engine.WithTimezone(opts.Config.Timezone),
	)
	return b, nil
}

func (b *backend) Close(ctx context.Context) error {
	err := b.exec.Close(ctx)
	if b.meta != nil {
		err = errors.Join(err, b.meta.Close())
	}
	return err
}

// outputExecutionError reports a request that compiled but could not be
// answered. Compile errors surface through the engine too and keep their
// request-level exit code.
func outputExecutionError(formatter *OutputFormatter, err error) error {
	if engine.CodeOf(err) == "" {
		return outputRequestError(formatter, err)
	}
	code := errorCode(err)
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}
