package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/dbx"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/dmitrijs2005/clinicsync/internal/server/store/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database; the schema must already exist.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects through pgx and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgres(db), nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreateUser(ctx context.Context, u User) error {
	facilities, err := json.Marshal(nonNil(u.FacilityIDs))
	if err != nil {
		return fmt.Errorf("encode facility ids: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, phone_number, pin_digest, status, facility_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.FullName, u.PhoneNumber, u.PinDigest, u.Status, string(facilities), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("user %s: %w", u.ID, ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

const selectUser = `SELECT id, full_name, phone_number, pin_digest, status, facility_ids, created_at, updated_at FROM users`

func (p *Postgres) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return p.queryUser(ctx, selectUser+` WHERE id = $1`, id)
}

func (p *Postgres) UserByPhone(ctx context.Context, phone string) (*User, error) {
	return p.queryUser(ctx, selectUser+` WHERE phone_number = $1`, phone)
}

func (p *Postgres) queryUser(ctx context.Context, query string, arg any) (*User, error) {
	var (
		u          User
		facilities []byte
	)
	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.FullName, &u.PhoneNumber, &u.PinDigest, &u.Status, &facilities, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(facilities) > 0 {
		if err := json.Unmarshal(facilities, &u.FacilityIDs); err != nil {
			return nil, fmt.Errorf("decode facility ids: %w", err)
		}
	}
	return &u, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, u User) error {
	facilities, err := json.Marshal(nonNil(u.FacilityIDs))
	if err != nil {
		return fmt.Errorf("encode facility ids: %w", err)
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET full_name = $2, phone_number = $3, pin_digest = $4, status = $5,
		 facility_ids = $6, updated_at = $7 WHERE id = $1`,
		u.ID, u.FullName, u.PhoneNumber, u.PinDigest, u.Status, string(facilities), u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, common.ErrNotFound)
	}
	return nil
}

const upsertRecord = `INSERT INTO records (resource, id, updated_at, deleted_at, data)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (resource, id) DO UPDATE SET
    seq = nextval('record_seq'),
    updated_at = EXCLUDED.updated_at,
    deleted_at = EXCLUDED.deleted_at,
    data = EXCLUDED.data
WHERE records.updated_at <= EXCLUDED.updated_at`

// lockResource serializes pushes of one resource until the transaction ends,
// so sequence numbers become visible in the order they were drawn. Without
// it a pull could pass over a lower seq that commits later.
const lockResource = `SELECT pg_advisory_xact_lock(hashtext($1))`

func (p *Postgres) Upsert(ctx context.Context, resource rpc.Resource, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, lockResource, "records:"+string(resource)); err != nil {
			return fmt.Errorf("lock %s: %w", resource, err)
		}
		for _, r := range records {
			if _, err := tx.ExecContext(ctx, upsertRecord,
				string(resource), r.ID, r.UpdatedAt, r.DeletedAt, string(r.Data)); err != nil {
				return fmt.Errorf("upsert %s %s: %w", resource, r.ID, err)
			}
		}
		return nil
	})
}

func (p *Postgres) ChangesSince(ctx context.Context, resource rpc.Resource, after int64, limit int) ([]Record, error) {
	var lim any = limit
	if limit <= 0 {
		lim = nil
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, seq, updated_at, deleted_at, data FROM records
		 WHERE resource = $1 AND seq > $2 ORDER BY seq LIMIT $3`,
		string(resource), after, lim)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			data []byte
		)
		if err := rows.Scan(&r.ID, &r.Seq, &r.UpdatedAt, dbx.ScanNullTime(&r.DeletedAt), &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", resource, err)
		}
		r.Data = json.RawMessage(data)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
