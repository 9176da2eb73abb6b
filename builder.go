package authgate

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Edraak/authgate/directory"
	"github.com/Edraak/authgate/internal/limiters"
	"github.com/Edraak/authgate/internal/lockaudit"
	"github.com/Edraak/authgate/internal/rate"
	"github.com/Edraak/authgate/password"
	"github.com/Edraak/authgate/session"
	"github.com/Edraak/authgate/token"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build; no I/O happens before then.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	db     *sql.DB

	lockStore   lockaudit.Store
	memoryLocks bool

	users     directory.Directory
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the seeded configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the failure counters and sessions.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDatabase sets the handle backing the lock audit store.
func (b *Builder) WithDatabase(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithMemoryLockStore keeps IP and account lock records in process memory
// instead of Postgres. For tests and single-node development; records do
// not survive a restart.
func (b *Builder) WithMemoryLockStore() *Builder {
	b.memoryLocks = true
	return b
}

// WithDirectory sets the user directory credentials are verified against.
func (b *Builder) WithDirectory(d directory.Directory) *Builder {
	b.users = d
	return b
}

// WithAuditSink sets the sink receiving dispatcher events. Nil means a
// no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Nil means slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, wires the stores, and returns a ready
// engine. A builder can only be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user directory required")
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	locks := b.lockStore
	if locks == nil {
		switch {
		case b.memoryLocks:
			locks = lockaudit.NewMemoryStore(now)
		case b.db != nil:
			locks = lockaudit.NewPostgresStore(b.db)
		default:
			return nil, errors.New("database handle required")
		}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	counters := rate.NewStore(b.redis)
	limiter := limiters.NewLoginLimiter(counters, limiters.LoginConfig{
		WindowMinutes: cfg.RateLimit.WindowMinutes,
		MaxRequests:   cfg.RateLimit.MaxRequests,
	}, now)

	sessions := session.NewStore(b.redis, cfg.Session.TTL, now)

	tokens, err := token.NewManager(token.Config{
		Secret:      cfg.Token.SigningSecret,
		RefreshTTL:  cfg.Token.RefreshTTL,
		AccessTTL:   cfg.Token.AccessTTL,
		EnvelopeTTL: cfg.Token.EnvelopeTTL,
		Leeway:      cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		limiter:  limiter,
		locks:    locks,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		users:    b.users,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      now,
	}

	b.built = true

	return engine, nil
}
