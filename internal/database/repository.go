package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	"github.com/BVG-Design/brokercompare-sub001/internal/encoding"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
)

// Repository persists finalized snapshots and the public listings derived from them
type Repository struct {
	db    *DB
	codec encoding.Codec
}

var _ assessment.SnapshotStore = (*Repository)(nil)

// NewRepository creates a new repository
func NewRepository(db *DB, codec encoding.Codec) *Repository {
	if codec == nil {
		codec = encoding.Default()
	}
	return &Repository{db: db, codec: codec}
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SaveSnapshot stores a snapshot with its region and badge index rows and points
// the vendor's listing at it, all in one transaction. An older snapshot never
// replaces a newer listing.
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot assessment.Snapshot) error {
	payload, err := r.codec.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snapshot.ID, err)
	}

	row := snapshotRow{
		ID:           snapshot.ID,
		AssessmentID: snapshot.AssessmentID,
		VendorID:     snapshot.VendorID,
		VendorName:   snapshot.VendorName,
		OverallScore: snapshot.OverallScore,
		Payload:      string(payload),
		FinalizedAt:  toUnix(snapshot.FinalizedAt),
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO snapshots (id, assessment_id, vendor_id, vendor_name, overall_score, payload, finalized_at)
			VALUES (:id, :assessment_id, :vendor_id, :vendor_name, :overall_score, :payload, :finalized_at)
		`, row)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		for _, region := range snapshot.Regions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_regions (snapshot_id, region) VALUES (?, ?)`,
				snapshot.ID, string(region)); err != nil {
				return fmt.Errorf("failed to insert snapshot region: %w", err)
			}
		}

		for _, badge := range snapshot.Badges {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_badges (snapshot_id, badge) VALUES (?, ?)`,
				snapshot.ID, string(badge)); err != nil {
				return fmt.Errorf("failed to insert snapshot badge: %w", err)
			}
		}

		listing := listingRow{
			VendorID:     snapshot.VendorID,
			SnapshotID:   snapshot.ID,
			OverallScore: snapshot.OverallScore,
			FinalizedAt:  row.FinalizedAt,
			UpdatedAt:    toUnix(time.Now()),
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO listings (vendor_id, snapshot_id, overall_score, finalized_at, updated_at)
			VALUES (:vendor_id, :snapshot_id, :overall_score, :finalized_at, :updated_at)
			ON CONFLICT(vendor_id) DO UPDATE SET
				snapshot_id = excluded.snapshot_id,
				overall_score = excluded.overall_score,
				finalized_at = excluded.finalized_at,
				updated_at = excluded.updated_at
			WHERE excluded.finalized_at >= listings.finalized_at
		`, listing)
		if err != nil {
			return fmt.Errorf("failed to upsert listing: %w", err)
		}

		return nil
	})
}

// GetSnapshot loads a snapshot by id
func (r *Repository) GetSnapshot(ctx context.Context, id string) (assessment.Snapshot, error) {
	var row snapshotRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, assessment_id, vendor_id, vendor_name, overall_score, payload, finalized_at
		FROM snapshots
		WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return assessment.Snapshot{}, apperrors.NewNotFoundError(apperrors.CodeSnapshotNotFound, "snapshot", id)
	}
	if err != nil {
		return assessment.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return r.decode(row)
}

// ListListings returns the current snapshot of every listed vendor matching filter,
// ordered by overall score descending with earlier finalization winning ties.
func (r *Repository) ListListings(ctx context.Context, filter ListingFilter) ([]assessment.Snapshot, error) {
	query := listingQuery(sq.Select("s.payload", "s.finalized_at"), filter).
		OrderBy("l.overall_score DESC", "l.finalized_at ASC", "l.vendor_id ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build listing query: %w", err)
	}

	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	snapshots := make([]assessment.Snapshot, 0, len(rows))
	for _, row := range rows {
		snapshot, err := r.decode(row)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// CountListings counts the listings matching filter, ignoring its limit
func (r *Repository) CountListings(ctx context.Context, filter ListingFilter) (int, error) {
	sqlStr, args, err := listingQuery(sq.Select("COUNT(*)"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

func listingQuery(base sq.SelectBuilder, filter ListingFilter) sq.SelectBuilder {
	query := base.
		From("listings l").
		Join("snapshots s ON s.id = l.snapshot_id")

	if filter.Region != "" {
		query = query.
			Join("snapshot_regions sr ON sr.snapshot_id = l.snapshot_id").
			Where(sq.Eq{"sr.region": string(filter.Region)})
	}
	if filter.Badge != "" {
		query = query.
			Join("snapshot_badges sb ON sb.snapshot_id = l.snapshot_id").
			Where(sq.Eq{"sb.badge": string(filter.Badge)})
	}
	return query
}

// decode restores a snapshot from its payload; the indexed column is authoritative for the time
func (r *Repository) decode(row snapshotRow) (assessment.Snapshot, error) {
	var snapshot assessment.Snapshot
	if err := r.codec.Unmarshal([]byte(row.Payload), &snapshot); err != nil {
		return assessment.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	snapshot.FinalizedAt = fromUnix(row.FinalizedAt)
	return snapshot, nil
}
