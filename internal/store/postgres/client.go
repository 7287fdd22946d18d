package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"factionwatch/internal/store"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{pool: pool}, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}

func (c *Client) WithTx(ctx context.Context, opts store.TxOptions, fn func(tx store.Tx) error) error {
	txOpts := pgx.TxOptions{}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}

	pgTx, err := c.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return store.Failure(fmt.Errorf("beginning transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = pgTx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&tx{tx: pgTx}); err != nil {
		_ = pgTx.Rollback(context.WithoutCancel(ctx))
		return store.Failure(err)
	}

	if err := pgTx.Commit(ctx); err != nil {
		return store.Failure(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

type tx struct {
	tx pgx.Tx
}
