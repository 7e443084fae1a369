package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/tenant"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

// Registry hands out the Store of each tenant database, opening one pooled
// connection per database on first use and creating the database and its
// tables when they are missing. Setting up one tenant does not hold up
// requests for tenants that are already open.
type Registry struct {
	cfg     config.DatabaseConfig
	admin   *sqlx.DB
	log     logrus.FieldLogger
	connect func(ctx context.Context, database string) (*sqlx.DB, error)

	mu     sync.Mutex
	stores map[string]*tenantEntry
	pools  []*sqlx.DB
}

// tenantEntry is closed once setup of its database has finished.
type tenantEntry struct {
	done  chan struct{}
	store *Store
	err   error
}

// NewRegistry connects to the server without selecting a database.
func NewRegistry(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (*Registry, error) {
	admin, err := open(ctx, cfg, "")
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	admin.SetMaxOpenConns(2)

	r := &Registry{
		cfg:    cfg,
		admin:  admin,
		log:    log,
		stores: make(map[string]*tenantEntry),
	}
	r.connect = func(ctx context.Context, database string) (*sqlx.DB, error) {
		return open(ctx, r.cfg, database)
	}
	return r, nil
}

func open(ctx context.Context, cfg config.DatabaseConfig, database string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.DSN(database))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Admin is the server-level handle, used for health checks.
func (r *Registry) Admin() *sqlx.DB {
	return r.admin
}

// Store returns the Store of the tenant carried by ctx.
func (r *Registry) Store(ctx context.Context) (*Store, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, customError.WrapMissingTenant()
	}
	return r.StoreFor(ctx, t.Database)
}

// StoreFor returns the Store of the named tenant database. Concurrent callers
// for a database being set up wait for that setup; a failed setup is not
// remembered, so the next call tries again.
func (r *Registry) StoreFor(ctx context.Context, database string) (*Store, error) {
	if !validDatabaseName(database) {
		return nil, customError.Validation("Nome de banco de dados inválido", fmt.Errorf("database %q", database))
	}

	r.mu.Lock()
	e, ok := r.stores[database]
	if !ok {
		e = &tenantEntry{done: make(chan struct{})}
		r.stores[database] = e
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-e.done:
			return e.store, e.err
		case <-ctx.Done():
			return nil, customError.WrapDatabaseError(ctx.Err())
		}
	}

	db, err := r.setup(ctx, database)

	r.mu.Lock()
	if err != nil {
		delete(r.stores, database)
		e.err = err
	} else {
		e.store = NewStore(db)
		r.pools = append(r.pools, db)
	}
	r.mu.Unlock()
	close(e.done)

	if err == nil {
		r.log.WithField("database", database).Info("Tenant database ready")
	}
	return e.store, e.err
}

func (r *Registry) setup(ctx context.Context, database string) (*sqlx.DB, error) {
	create := "CREATE DATABASE IF NOT EXISTS `" + database + "` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"
	if _, err := r.admin.ExecContext(ctx, create); err != nil {
		return nil, customError.WrapDatabaseError(fmt.Errorf("create database %s: %w", database, err))
	}

	db, err := r.connect(ctx, database)
	if err != nil {
		return nil, customError.WrapDatabaseError(fmt.Errorf("connect to %s: %w", database, err))
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, customError.WrapDatabaseError(fmt.Errorf("%s: %w", database, err))
	}
	return db, nil
}

// ListTenants returns the names of the tenant databases present on the server.
func (r *Registry) ListTenants(ctx context.Context) ([]string, error) {
	prefix := r.cfg.TenantPrefix
	if prefix == "" {
		prefix = tenant.DefaultPrefix
	}
	pattern := likeEscaper.Replace(prefix) + "%"

	query := `SELECT schema_name FROM information_schema.schemata WHERE schema_name LIKE ? ORDER BY schema_name`

	names := []string{}
	if err := r.admin.SelectContext(ctx, &names, query, pattern); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// LIKE is case-insensitive under the default collation.
	tenants := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			tenants = append(tenants, name)
		}
	}
	return tenants, nil
}

// validDatabaseName accepts the names tenant.DatabaseName produces, which
// are safe to quote with backticks.
func validDatabaseName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	}) < 0
}

// Close releases every tenant pool and the admin handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, db := range r.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.admin.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	r.stores = make(map[string]*tenantEntry)
	r.pools = nil
	return firstErr
}
