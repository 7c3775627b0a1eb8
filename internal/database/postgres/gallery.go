package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// GalleryRepository mirrors the trained gallery in PostgreSQL.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

var _ database.GalleryWriter = (*GalleryRepository)(nil)

// SaveGallery replaces the stored gallery in a single transaction.
func (r *GalleryRepository) SaveGallery(ctx context.Context, g *gallery.Gallery) error {
	if err := g.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// reference_descriptors rows go with their students via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, "DELETE FROM students"); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM gallery_meta"); err != nil {
		return fmt.Errorf("clear gallery meta: %w", err)
	}

	studentStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO students (student_key, reg_no, name, branch, session, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("prepare student insert: %w", err)
	}
	defer studentStmt.Close()

	descStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reference_descriptors (student_key, position, descriptor, embedding)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("prepare descriptor insert: %w", err)
	}
	defer descStmt.Close()

	for i, e := range g.Entries {
		id := e.Identity
		key := id.Key()
		if _, err := studentStmt.ExecContext(ctx, key, id.RegNo, id.Name, id.Branch, id.Session, i); err != nil {
			return fmt.Errorf("insert student %s: %w", key, err)
		}
		for j, d := range e.Descriptors {
			_, err := descStmt.ExecContext(ctx, key, j, pq.Array([]float64(d)), pgvector.NewVector(d.Float32()))
			if err != nil {
				return fmt.Errorf("insert descriptor %d of %s: %w", j, key, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO gallery_meta (model, dim, built_at) VALUES ($1, $2, $3)",
		g.Model, g.Dim, g.BuiltAt,
	)
	if err != nil {
		return fmt.Errorf("insert gallery meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gallery: %w", err)
	}
	return nil
}

// LoadGallery reads the stored gallery, preserving entry and descriptor order.
func (r *GalleryRepository) LoadGallery(ctx context.Context) (*gallery.Gallery, error) {
	g := gallery.New()
	err := r.pool.QueryRow(ctx, "SELECT model, dim, built_at FROM gallery_meta").Scan(&g.Model, &g.Dim, &g.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gallery.ErrGalleryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query gallery meta: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT s.reg_no, s.name, s.branch, s.session, d.descriptor
		FROM students s
		JOIN reference_descriptors d ON d.student_key = s.student_key
		ORDER BY s.position, d.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id roster.Identity
		var values pq.Float64Array
		if err := rows.Scan(&id.RegNo, &id.Name, &id.Branch, &id.Session, &values); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		if err := g.Add(id, facematch.Descriptor(values)); err != nil {
			return nil, fmt.Errorf("%w: %w", gallery.ErrGalleryCorrupt, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}
	return g, nil
}

// CountStudents returns the number of stored students.
func (r *GalleryRepository) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// FindNearest ranks students by the Euclidean distance of their closest
// reference descriptor to the query.
func (r *GalleryRepository) FindNearest(
	ctx context.Context, query facematch.Descriptor, limit int,
) ([]database.NearestStudent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.reg_no, s.name, s.branch, s.session, MIN(d.embedding <-> $1::vector) AS distance
		FROM reference_descriptors d
		JOIN students s ON s.student_key = d.student_key
		GROUP BY s.student_key, s.reg_no, s.name, s.branch, s.session
		ORDER BY distance, s.reg_no, s.name
		LIMIT $2
	`, pgvector.NewVector(query.Float32()), limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest students: %w", err)
	}
	defer rows.Close()

	var out []database.NearestStudent
	for rows.Next() {
		var n database.NearestStudent
		if err := rows.Scan(&n.Identity.RegNo, &n.Identity.Name, &n.Identity.Branch, &n.Identity.Session, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan nearest student: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest students: %w", err)
	}
	return out, nil
}
