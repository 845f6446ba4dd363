package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
)

var ErrLocked = errors.New("lock held by another process")

// Lock is a session-level Postgres advisory lock pinned to one connection.
type Lock struct {
	conn *sql.Conn
	key  int64
	name string
}

func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("clubledger"))
	h.Write([]byte{0})
	h.Write([]byte(name))

	return int64(h.Sum64())
}

// TryLock takes the named lock without waiting. It returns ErrLocked when
// another session holds it.
func TryLock(ctx context.Context, db *sql.DB, name string) (*Lock, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	key := lockKey(name)

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquiring %s lock: %w", name, err)
	}

	if !acquired {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", name, ErrLocked)
	}

	return &Lock{conn: conn, key: key, name: name}, nil
}

func (l *Lock) Release(ctx context.Context) error {
	defer l.conn.Close()

	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.key); err != nil {
		return fmt.Errorf("releasing %s lock: %w", l.name, err)
	}

	return nil
}
