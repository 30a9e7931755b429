package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a HistoryStore backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Schema: messages(id bigserial, sender text, body text, recipient text null,
// sent_at timestamptz default now()). The visibility filter runs in SQL so
// replay never materializes other users' private traffic.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "relay").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("chat: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("chat: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed HistoryStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "relay",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("chat: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Save appends one message to the history log. The send time is assigned
// by the database.
func (s *PostgresStore) Save(ctx context.Context, sender, body string, recipient *string) error {
	if s == nil || s.pool == nil {
		return storageErr("postgres.save", errors.New("nil store"))
	}
	if err := ctx.Err(); err != nil {
		return storageErr("postgres.save", err)
	}

	messages := pgIdent(s.schema, "messages")

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+messages+` (sender, body, recipient) VALUES ($1, $2, $3)`,
		sender, body, recipient,
	)
	return storageErr("postgres.save", err)
}

// LoadVisible returns the messages username may see, oldest first.
func (s *PostgresStore) LoadVisible(ctx context.Context, username string) ([]StoredMessage, error) {
	if s == nil || s.pool == nil {
		return nil, storageErr("postgres.load", errors.New("nil store"))
	}
	if err := ctx.Err(); err != nil {
		return nil, storageErr("postgres.load", err)
	}

	messages := pgIdent(s.schema, "messages")

	rows, err := s.pool.Query(ctx,
		`SELECT sender, body, recipient, sent_at
		   FROM `+messages+`
		  WHERE recipient IS NULL
		     OR recipient = $1
		     OR sender = $1
		  ORDER BY sent_at ASC, id ASC`,
		username,
	)
	if err != nil {
		return nil, storageErr("postgres.load", err)
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.Sender, &m.Body, &m.Recipient, &m.SentAt); err != nil {
			return nil, storageErr("postgres.load", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("postgres.load", err)
	}
	return out, nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
