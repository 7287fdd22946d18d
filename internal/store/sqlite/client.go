package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"factionwatch/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*Client)(nil)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Client struct {
	db *sql.DB
}

func New(ctx context.Context, dsn string) (*Client, error) {
	driverDSN, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}

	db, err := sql.Open("sqlite", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite has a single writer. One connection serializes every unit of
	// work instead of surfacing SQLITE_BUSY on lock upgrades.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.db.Close()
}

func (c *Client) WithTx(ctx context.Context, opts store.TxOptions, fn func(tx store.Tx) error) (err error) {
	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Failure(fmt.Errorf("beginning transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return store.Failure(err)
	}

	if opts.ReadOnly {
		if err := sqlTx.Rollback(); err != nil {
			return store.Failure(fmt.Errorf("closing read transaction: %w", err))
		}
		return nil
	}

	if err := sqlTx.Commit(); err != nil {
		return store.Failure(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

type tx struct {
	tx *sql.Tx
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored timestamp %q: %w", value, err)
	}
	return t, nil
}
