package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/ventures/internal/core/domain"
)

// SQLAdapter implements the venture and post repositories on database/sql.
// It speaks the MySQL and SQLite dialects; both use ? placeholders and lack
// a portable RETURNING, so writes are read back by primary key.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return NewSQLAdapter(db, DialectMySQL)
}

func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return NewSQLAdapter(db, DialectSQLite)
}

type sqlTxKey struct{}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *SQLAdapter) q(ctx context.Context) sqlQuerier {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return m.db
}

func (m *SQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *SQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *SQLAdapter) Migrate(ctx context.Context, applied func(file string)) error {
	return applySchema(ctx, m.dialect, func(ctx context.Context, stmt string) error {
		_, err := m.db.ExecContext(ctx, stmt)
		return err
	}, applied)
}

func (m *SQLAdapter) CreatePitch(ctx context.Context, pitch domain.Pitch) (*domain.Pitch, error) {
	traction := domain.NormalizeTraction(pitch.Traction)
	if !json.Valid(traction) {
		return nil, fmt.Errorf("encode traction: invalid JSON %q", traction)
	}
	pitch.ID = uuid.NewString()

	_, err := m.q(ctx).ExecContext(ctx, `
		INSERT INTO pitches (id, founder_id, title, vision, traction, funding_ask, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pitch.ID, pitch.FounderID, pitch.Title, pitch.Vision, string(traction),
		nullFloat(pitch.FundingAsk), pitch.Status, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert pitch: %w", err)
	}

	return m.getPitch(ctx, pitch.ID)
}

func (m *SQLAdapter) getPitch(ctx context.Context, id string) (*domain.Pitch, error) {
	var (
		p        domain.Pitch
		traction []byte
		ask      sql.NullFloat64
	)
	err := m.q(ctx).QueryRowContext(ctx, `
		SELECT id, founder_id, title, vision, traction, funding_ask, status, created_at
		FROM pitches WHERE id = ?`, id,
	).Scan(&p.ID, &p.FounderID, &p.Title, &p.Vision, &traction, &ask, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query pitch: %w", err)
	}
	if err := decodeTraction(traction, &p); err != nil {
		return nil, err
	}
	p.FundingAsk = floatPtr(ask)
	return &p, nil
}

func (m *SQLAdapter) CreateShipment(ctx context.Context, s domain.Shipment) (*domain.Shipment, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = now()

	var impact sql.NullInt64
	if s.ImpactScore != nil {
		impact = sql.NullInt64{Int64: int64(*s.ImpactScore), Valid: true}
	}

	_, err := m.q(ctx).ExecContext(ctx, `
		INSERT INTO shipments (id, founder_id, post_id, repo_url, commit_hash, description, verified_by, impact_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.FounderID, s.PostID, s.RepoURL, s.CommitHash, s.Description, s.VerifiedBy, impact, s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shipment: %w", err)
	}

	return &s, nil
}

func (m *SQLAdapter) ListPitches(ctx context.Context, filter domain.PitchFilter) ([]domain.PitchListing, error) {
	rows, err := m.q(ctx).QueryContext(ctx, `
		SELECT p.id, p.founder_id, p.title, p.vision, p.traction, p.funding_ask, p.status, p.created_at,
		       a.name, a.display_name
		FROM pitches p
		JOIN agents a ON p.founder_id = a.id
		WHERE p.status = ?
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`,
		filter.Status, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query pitches: %w", err)
	}
	defer rows.Close()

	var out []domain.PitchListing
	for rows.Next() {
		var (
			l           domain.PitchListing
			traction    []byte
			ask         sql.NullFloat64
			displayName sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.FounderID, &l.Title, &l.Vision, &traction, &ask, &l.Status, &l.CreatedAt,
			&l.FounderName, &displayName); err != nil {
			return nil, fmt.Errorf("scan pitch: %w", err)
		}
		if err := decodeTraction(traction, &l.Pitch); err != nil {
			return nil, err
		}
		l.FundingAsk = floatPtr(ask)
		if displayName.Valid {
			l.FounderDisplayName = &displayName.String
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (m *SQLAdapter) PitchExists(ctx context.Context, pitchID string) (bool, error) {
	var one int
	err := m.q(ctx).QueryRowContext(ctx, `SELECT 1 FROM pitches WHERE id = ?`, pitchID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query pitch: %w", err)
	}
	return true, nil
}

// UpsertInterest writes and reads back the row in one transaction so the
// result reflects this call's write.
func (m *SQLAdapter) UpsertInterest(ctx context.Context, in domain.Interest) (*domain.Interest, error) {
	var out *domain.Interest
	err := m.WithinTx(ctx, func(ctx context.Context) error {
		ts := now()
		_, err := m.q(ctx).ExecContext(ctx, m.upsertInterestSQL(),
			uuid.NewString(), in.PitchID, in.InvestorID, nullFloat(in.Amount), in.Message, ts, ts,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.NotFoundError("pitch")
			}
			return fmt.Errorf("upsert interest: %w", err)
		}

		var (
			i      domain.Interest
			amount sql.NullFloat64
		)
		err = m.q(ctx).QueryRowContext(ctx, `
			SELECT id, pitch_id, investor_id, amount, message, created_at, updated_at
			FROM venture_interests WHERE pitch_id = ? AND investor_id = ?`,
			in.PitchID, in.InvestorID,
		).Scan(&i.ID, &i.PitchID, &i.InvestorID, &amount, &i.Message, &i.CreatedAt, &i.UpdatedAt)
		if err != nil {
			return fmt.Errorf("query interest: %w", err)
		}
		i.Amount = floatPtr(amount)
		out = &i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *SQLAdapter) upsertInterestSQL() string {
	if m.dialect == DialectMySQL {
		return `
			INSERT INTO venture_interests (id, pitch_id, investor_id, amount, message, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE amount = VALUES(amount), message = VALUES(message), updated_at = VALUES(updated_at)`
	}
	return `
		INSERT INTO venture_interests (id, pitch_id, investor_id, amount, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pitch_id, investor_id)
		DO UPDATE SET amount = excluded.amount, message = excluded.message, updated_at = excluded.updated_at`
}

func (m *SQLAdapter) CreatePost(ctx context.Context, post domain.Post) (*domain.Post, error) {
	post.ID = uuid.NewString()
	post.CreatedAt = now()

	_, err := m.q(ctx).ExecContext(ctx, `
		INSERT INTO posts (id, author_id, submolt, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.Submolt, post.Title, post.Content, post.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &post, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// decodeTraction keeps the stored JSON value as is, whatever its shape.
func decodeTraction(raw []byte, p *domain.Pitch) error {
	traction := domain.NormalizeTraction(append(json.RawMessage(nil), raw...))
	if !json.Valid(traction) {
		return fmt.Errorf("decode traction: invalid JSON %q", traction)
	}
	p.Traction = traction
	return nil
}

func isForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// ER_NO_REFERENCED_ROW_2
		return myErr.Number == 1452
	}
	return isSQLiteForeignKeyViolation(err)
}
