package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/ventures/internal/core/domain"
)

const pgForeignKeyViolation = "23503"

// PostgresAdapter implements the venture and post repositories on pgx.
// IDs and timestamps are assigned by the database and returned with RETURNING.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

type pgTxKey struct{}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *PostgresAdapter) q(ctx context.Context) pgQuerier {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return p.pool
}

func (p *PostgresAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *PostgresAdapter) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresAdapter) Migrate(ctx context.Context, applied func(file string)) error {
	return applySchema(ctx, DialectPostgres, func(ctx context.Context, stmt string) error {
		_, err := p.pool.Exec(ctx, stmt)
		return err
	}, applied)
}

func (p *PostgresAdapter) CreatePitch(ctx context.Context, pitch domain.Pitch) (*domain.Pitch, error) {
	var out domain.Pitch
	err := p.q(ctx).QueryRow(ctx, `
		INSERT INTO pitches (founder_id, title, vision, traction, funding_ask, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, founder_id::text, title, vision, traction, funding_ask::float8, status, created_at`,
		pitch.FounderID, pitch.Title, pitch.Vision, domain.NormalizeTraction(pitch.Traction), pitch.FundingAsk, string(pitch.Status),
	).Scan(&out.ID, &out.FounderID, &out.Title, &out.Vision, &out.Traction, &out.FundingAsk, &out.Status, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pitch: %w", err)
	}
	out.Traction = domain.NormalizeTraction(out.Traction)
	return &out, nil
}

func (p *PostgresAdapter) CreateShipment(ctx context.Context, s domain.Shipment) (*domain.Shipment, error) {
	var out domain.Shipment
	err := p.q(ctx).QueryRow(ctx, `
		INSERT INTO shipments (founder_id, post_id, repo_url, commit_hash, description, verified_by, impact_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, founder_id::text, post_id::text, repo_url, commit_hash, description,
		          verified_by::text, impact_score, created_at`,
		s.FounderID, s.PostID, s.RepoURL, s.CommitHash, s.Description, s.VerifiedBy, s.ImpactScore,
	).Scan(&out.ID, &out.FounderID, &out.PostID, &out.RepoURL, &out.CommitHash, &out.Description,
		&out.VerifiedBy, &out.ImpactScore, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert shipment: %w", err)
	}
	return &out, nil
}

func (p *PostgresAdapter) ListPitches(ctx context.Context, filter domain.PitchFilter) ([]domain.PitchListing, error) {
	rows, err := p.q(ctx).Query(ctx, `
		SELECT p.id::text, p.founder_id::text, p.title, p.vision, p.traction, p.funding_ask::float8, p.status, p.created_at,
		       a.name, a.display_name
		FROM pitches p
		JOIN agents a ON p.founder_id = a.id
		WHERE p.status = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`,
		string(filter.Status), filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query pitches: %w", err)
	}
	defer rows.Close()

	var out []domain.PitchListing
	for rows.Next() {
		var l domain.PitchListing
		if err := rows.Scan(&l.ID, &l.FounderID, &l.Title, &l.Vision, &l.Traction, &l.FundingAsk, &l.Status, &l.CreatedAt,
			&l.FounderName, &l.FounderDisplayName); err != nil {
			return nil, fmt.Errorf("scan pitch: %w", err)
		}
		l.Traction = domain.NormalizeTraction(l.Traction)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *PostgresAdapter) PitchExists(ctx context.Context, pitchID string) (bool, error) {
	var exists bool
	err := p.q(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pitches WHERE id = $1)`, pitchID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query pitch: %w", err)
	}
	return exists, nil
}

func (p *PostgresAdapter) UpsertInterest(ctx context.Context, in domain.Interest) (*domain.Interest, error) {
	var out domain.Interest
	err := p.q(ctx).QueryRow(ctx, `
		INSERT INTO venture_interests (pitch_id, investor_id, amount, message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pitch_id, investor_id)
		DO UPDATE SET amount = EXCLUDED.amount, message = EXCLUDED.message, updated_at = NOW()
		RETURNING id::text, pitch_id::text, investor_id::text, amount::float8, message, created_at, updated_at`,
		in.PitchID, in.InvestorID, in.Amount, in.Message,
	).Scan(&out.ID, &out.PitchID, &out.InvestorID, &out.Amount, &out.Message, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, domain.NotFoundError("pitch")
		}
		return nil, fmt.Errorf("upsert interest: %w", err)
	}
	return &out, nil
}

func (p *PostgresAdapter) CreatePost(ctx context.Context, post domain.Post) (*domain.Post, error) {
	var out domain.Post
	err := p.q(ctx).QueryRow(ctx, `
		INSERT INTO posts (author_id, submolt, title, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, author_id::text, submolt, title, content, created_at`,
		post.AuthorID, post.Submolt, post.Title, post.Content,
	).Scan(&out.ID, &out.AuthorID, &out.Submolt, &out.Title, &out.Content, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &out, nil
}
