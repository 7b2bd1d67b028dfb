package oracle

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"gorm.io/driver/oracle/logger"
	"gorm.io/driver/oracle/quoting"
)

// Dialect is everything that differs between the native client libraries.
// Shared code never asks which backend it talks to; it asks the Dialect.
type Dialect interface {
	// Name is the registry name, as used by Config.Driver.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	DSN(cfg Config) (string, error)

	// Binder turns normalized values into native bind arguments.
	quoting.Binder
	// QueryArgs are driver options appended to the binds of every query.
	QueryArgs(cfg Config) []interface{}
	// Unwrap converts a scanned native value into a Go basic, or an
	// io.Reader for an unread LOB.
	Unwrap(v interface{}) interface{}

	// ReturningSQL rewrites a statement ending in RETURNING ... INTO
	// :returning_id so the backend can fill an out bind.
	ReturningSQL(sql string) string
	InlineLOB() bool
	// ErrorCode extracts the ORA-nnnnn number from a backend error, or 0.
	ErrorCode(err error) int
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect makes a backend available under name. Backends register
// themselves from init; importing the backend package is enough.
func RegisterDialect(name string, d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = d
}

// GetDialect returns the backend registered under name.
func GetDialect(name string) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// Dialects lists the registered backend names.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PreferredDrivers is the order backends are tried in when the
// configuration names none. It is fixed at build time.
func PreferredDrivers() []string {
	return append([]string(nil), preferredDrivers...)
}

func selectDialect(cfg Config) (Dialect, error) {
	if cfg.Driver != "" {
		if d, ok := GetDialect(cfg.Driver); ok {
			return d, nil
		}
		return nil, errors.Wrapf(ErrArgument, "driver %q is not registered (have %v)", cfg.Driver, Dialects())
	}
	for _, name := range preferredDrivers {
		if d, ok := GetDialect(name); ok {
			return d, nil
		}
	}
	return nil, errors.Wrapf(ErrArgument, "no Oracle backend registered, import one of %v", preferredDrivers)
}

// Option configures sessions created by Open and NewSession.
type Option func(*options)

type options struct {
	logger  logger.Interface
	metrics *Metrics
}

func WithLogger(l logger.Interface) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Open selects a backend, connects and wraps the session so lost
// connections are recovered transparently.
func Open(ctx context.Context, cfg Config, opts ...Option) (*RecoveringConnection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := selectDialect(cfg)
	if err != nil {
		return nil, err
	}
	sess, err := NewSession(ctx, d, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewRecoveringConnection(sess, opts...), nil
}
