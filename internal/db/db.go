package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/emsdesk/apiserver/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultMaxConnIdle    = 2 * time.Minute
	defaultMinPoolSize    = 2
	defaultMaxPoolSize    = 50
	defaultAppName        = "emsdesk-apiserver"
)

// DB holds the Mongo client and the application database.
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Open connects to Mongo and verifies the connection with a ping.
func Open(ctx context.Context, cfg config.Config) (*DB, error) {
	timeout := cfg.Mongo.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetAppName(defaultAppName).
		SetConnectTimeout(timeout).
		SetMaxConnIdleTime(defaultMaxConnIdle).
		SetMinPoolSize(defaultMinPoolSize).
		SetMaxPoolSize(defaultMaxPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	db := &DB{Client: client, Database: client.Database(cfg.Mongo.Database)}
	if err := db.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return db, nil
}

// Ping checks that the primary is reachable.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return d.Client.Ping(ctx, readpref.Primary())
}

// Collection returns the named collection of the application database.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.Database.Collection(name)
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// MigrationURL builds the migrate database URL for the configured Mongo
// deployment. The driver reads the database name from the URL path.
func MigrationURL(cfg config.MongoConfig) (string, error) {
	u, err := url.Parse(cfg.URI)
	if err != nil {
		return "", fmt.Errorf("parse mongo uri: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return "", fmt.Errorf("unsupported mongo uri scheme %q", u.Scheme)
	}
	if cfg.Database == "" {
		return "", errors.New("mongo database is required")
	}
	u.Path = "/" + cfg.Database
	return u.String(), nil
}

// NewMigrator constructs a migrator reading JSON migrations from dir.
func NewMigrator(cfg config.Config) (*migrate.Migrate, error) {
	dbURL, err := MigrationURL(cfg.Mongo)
	if err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return nil, err
	}
	m, err := migrate.New("file://"+filepath.ToSlash(dir), dbURL)
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(cfg config.Config) error {
	m, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations.
func MigrateDown(cfg config.Config, steps int) error {
	if steps < 1 {
		return errors.New("steps must be at least 1")
	}
	m, err := NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version and whether it is dirty.
func MigrationVersion(cfg config.Config) (uint, bool, error) {
	m, err := NewMigrator(cfg)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		_, _ = m.Close()
	}()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
