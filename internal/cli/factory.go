package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ferrou/turnstile/pkg/adapters/file"
	"github.com/ferrou/turnstile/pkg/adapters/memory"
	redisadapter "github.com/ferrou/turnstile/pkg/adapters/redis"
	"github.com/ferrou/turnstile/pkg/config"
	"github.com/ferrou/turnstile/pkg/flow"
	"github.com/ferrou/turnstile/pkg/session"
	backend "github.com/redis/go-redis/v9"

	loamadapter "github.com/ferrou/turnstile/pkg/adapters/loam"
)

// RunOptions carries the shared command-line settings.
type RunOptions struct {
	// FlowFile is a YAML flow declaration; Dir is a loam directory of step
	// documents. At most one of them is set; neither means the default flow.
	FlowFile string
	Dir      string

	CheckoutID string

	// RedisAddr selects the Redis store; StateDir the file store; neither
	// means checkouts live in memory for the life of the process.
	RedisAddr string
	StateDir  string

	Debug bool
}

// LoadDefinition builds and freezes the flow selected by the options. The
// returned loader is non-nil only in loam mode, where step documents also
// carry renderable content.
func LoadDefinition(ctx context.Context, opts RunOptions) (*flow.Definition, *loamadapter.Loader, error) {
	if opts.FlowFile != "" && opts.Dir != "" {
		return nil, nil, fmt.Errorf("--flow and --dir are mutually exclusive")
	}

	var (
		b      *flow.Builder
		loader *loamadapter.Loader
		err    error
	)
	switch {
	case opts.FlowFile != "":
		b, err = config.Load(opts.FlowFile)
	case opts.Dir != "":
		loader, err = loamadapter.Open(opts.Dir)
		if err == nil {
			b, err = loader.Builder(ctx)
		}
	default:
		b = flow.Default()
	}
	if err != nil {
		return nil, nil, err
	}

	def, err := b.Freeze()
	if err != nil {
		return nil, nil, err
	}
	return def, loader, nil
}

// SetupSessions wires the checkout store selected by the options into a
// session manager: Redis when an address is given, in-memory otherwise.
func SetupSessions(opts RunOptions, logger *slog.Logger) (*session.Manager, error) {
	if opts.RedisAddr == "" {
		if opts.StateDir != "" {
			return session.NewManager(file.New(opts.StateDir), session.WithLogger(logger)), nil
		}
		return session.NewManager(memory.NewStore(), session.WithLogger(logger)), nil
	}

	client := backend.NewClient(&backend.Options{Addr: opts.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.RedisAddr, err)
	}

	store := redisadapter.NewFromClient(client, redisadapter.WithTTL(24*time.Hour))
	locker := redisadapter.NewLocker(client, "turnstile:lock:")
	return session.NewManager(store,
		session.WithLogger(logger),
		session.WithLocker(locker),
	), nil
}
