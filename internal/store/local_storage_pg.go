package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocalStoragePG keeps visitor storage in the local_storage table so carts
// and sessions survive a restart.
type LocalStoragePG struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewLocalStoragePG(db *pgxpool.Pool, timeout time.Duration) *LocalStoragePG {
	return &LocalStoragePG{db: db, timeout: timeout}
}

func (r *LocalStoragePG) Namespace(id string) LocalStorage {
	return &pgNamespace{repo: r, id: id}
}

func (r *LocalStoragePG) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// PurgeIdle removes namespaces untouched since before cutoff.
func (r *LocalStoragePG) PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM local_storage WHERE updated_at < $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgNamespace struct {
	repo *LocalStoragePG
	id   string
}

func (n *pgNamespace) GetItem(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM local_storage WHERE namespace = $1 AND key = $2`
	timeoutCtx, cancel := n.repo.withTimeout(ctx)
	defer cancel()

	var value string
	err := n.repo.db.QueryRow(timeoutCtx, query, n.id, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (n *pgNamespace) SetItem(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO local_storage (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()`
	timeoutCtx, cancel := n.repo.withTimeout(ctx)
	defer cancel()
	_, err := n.repo.db.Exec(timeoutCtx, query, n.id, key, value)
	return err
}

func (n *pgNamespace) RemoveItem(ctx context.Context, key string) error {
	const query = `DELETE FROM local_storage WHERE namespace = $1 AND key = $2`
	timeoutCtx, cancel := n.repo.withTimeout(ctx)
	defer cancel()
	_, err := n.repo.db.Exec(timeoutCtx, query, n.id, key)
	return err
}
