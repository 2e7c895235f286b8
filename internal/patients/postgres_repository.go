package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores each patient as one sealed document row with
// an optimistic version column.
type PostgresRepository struct {
	db     pgQuerier
	codec  documentCodec
	tracer trace.Tracer
}

func NewPostgresRepository(pool *pgxpool.Pool, sealer *Sealer) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return newPostgresRepositoryWithExec(pool, sealer)
}

func newPostgresRepositoryWithExec(db pgQuerier, sealer *Sealer) *PostgresRepository {
	if db == nil {
		panic("patients: exec required")
	}
	if sealer == nil {
		panic("patients: sealer required")
	}
	return &PostgresRepository{
		db:     db,
		codec:  documentCodec{sealer: sealer},
		tracer: otel.Tracer("carefront.internal.patients.postgres"),
	}
}

func (r *PostgresRepository) Find(ctx context.Context, medicalCardID string) (*Patient, error) {
	ctx, span := r.tracer.Start(ctx, "patients.find")
	defer span.End()

	query := `SELECT document, version FROM patients WHERE medical_card_id = $1`
	var (
		doc     []byte
		version int64
	)
	if err := r.db.QueryRow(ctx, query, medicalCardID).Scan(&doc, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return r.codec.decode(doc, medicalCardID, version)
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *Patient) error {
	ctx, span := r.tracer.Start(ctx, "patients.upsert")
	defer span.End()

	if p == nil || p.MedicalCardID == "" {
		return fmt.Errorf("%w: medical card id is required", ErrInvalidInput)
	}

	expected := p.Version
	p.Version = expected + 1
	doc, err := r.codec.encode(p)
	if err != nil {
		p.Version = expected
		return err
	}

	var tag pgconn.CommandTag
	if expected == 0 {
		tag, err = r.db.Exec(ctx, `
			INSERT INTO patients (medical_card_id, document, version)
			VALUES ($1, $2, $3)
			ON CONFLICT (medical_card_id) DO NOTHING
		`, p.MedicalCardID, doc, p.Version)
	} else {
		tag, err = r.db.Exec(ctx, `
			UPDATE patients
			SET document = $2, version = $3, updated_at = now()
			WHERE medical_card_id = $1 AND version = $4
		`, p.MedicalCardID, doc, p.Version, expected)
	}
	if err != nil {
		p.Version = expected
		span.RecordError(err)
		return fmt.Errorf("patients: write failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		p.Version = expected
		return ErrConflict
	}
	return nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Patient, error) {
	ctx, span := r.tracer.Start(ctx, "patients.list_all")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT medical_card_id, document, version FROM patients ORDER BY medical_card_id`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		var (
			id      string
			doc     []byte
			version int64
		)
		if err := rows.Scan(&id, &doc, &version); err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		p, err := r.codec.decode(doc, id, version)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	return out, nil
}
