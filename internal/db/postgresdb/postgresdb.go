// Package postgresdb provides a PostgreSQL-based backing store for the user collection.
// The collection is kept as one serialized document in a single row,
// so it is still read and replaced wholesale exactly like the JSON file.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/userlist/internal/db/storage"
)

// DefaultCollectionName is the row key of the user collection.
const DefaultCollectionName = "users"

// PostgresDB is a PostgreSQL-backed storage.Storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
	collectionName    string
}

type initOptions struct {
	DBPreReset     bool
	CollectionName string
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// WithCollectionName stores the collection under another row key.
func WithCollectionName(name string) InitOption {
	return func(options *initOptions) {
		options.CollectionName = name
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset:     false,
		CollectionName: DefaultCollectionName,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
		collectionName:    options.CollectionName,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, closeOnFailure(database, fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
				err,
			))
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, closeOnFailure(database, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
			err,
		))
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, closeOnFailure(database, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
			err,
		))
	}

	return result, nil
}

func closeOnFailure(database *sql.DB, cause error) error {
	if err := database.Close(); err != nil {
		return errors.Join(cause, err)
	}

	return cause
}

// ReadCollection returns the stored document or storage.ErrNoCollection when the row is absent.
func (db *PostgresDB) ReadCollection(ctx context.Context) ([]byte, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT document FROM user_collections WHERE name = $1`,
		db.collectionName,
	)

	var document string
	err := row.Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoCollection
	}
	if err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/ReadCollection(): error while `row.Scan()` calling: %w",
				err,
			)
	}

	return []byte(document), nil
}

// WriteCollection upserts the document. The column is plain text on purpose:
// whatever was written is read back byte for byte, malformed or not.
func (db *PostgresDB) WriteCollection(ctx context.Context, data []byte) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO user_collections (name, document, updated_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (name) DO UPDATE
				SET
					document = EXCLUDED.document,
					updated_at = EXCLUDED.updated_at;
		`,
		db.collectionName,
		string(data),
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/WriteCollection(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// RemoveCollection deletes the row of the collection.
func (db *PostgresDB) RemoveCollection(ctx context.Context) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM user_collections WHERE name = $1`,
		db.collectionName,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/RemoveCollection(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNoCollection
	}

	return nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
