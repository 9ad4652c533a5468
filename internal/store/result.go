package store

import (
	"database/sql"
	"time"
)

// Ellipse is the stored outline of a detection.
type Ellipse struct {
	CenterX float64
	CenterY float64
	AxisA   float64
	AxisB   float64
	Angle   float64
}

// Record is one stored frame result. Ellipse, Diameter and NormX/NormY are
// nil for ticks without a detection.
type Record struct {
	ID         int64
	SessionID  string
	EntityID   int
	Topic      string
	Method     string
	Timestamp  float64
	Confidence float64
	Ellipse    *Ellipse
	Diameter   *float64
	NormX      *float64
	NormY      *float64
	CreatedAt  time.Time
}

// ResultFilter narrows ResultRepository.List.
type ResultFilter struct {
	SessionID string
	EntityID  *int
	Limit     int
}

// ResultRepository provides access to recorded results.
type ResultRepository struct {
	db *sql.DB
}

// Results returns the result repository for this store.
func (s *Store) Results() *ResultRepository {
	return &ResultRepository{db: s.db}
}

// Insert stores rec and sets its ID and CreatedAt.
func (r *ResultRepository) Insert(rec *Record) error {
	rec.CreatedAt = time.Now()

	var cx, cy, a, b, angle sql.NullFloat64
	if rec.Ellipse != nil {
		cx = sql.NullFloat64{Float64: rec.Ellipse.CenterX, Valid: true}
		cy = sql.NullFloat64{Float64: rec.Ellipse.CenterY, Valid: true}
		a = sql.NullFloat64{Float64: rec.Ellipse.AxisA, Valid: true}
		b = sql.NullFloat64{Float64: rec.Ellipse.AxisB, Valid: true}
		angle = sql.NullFloat64{Float64: rec.Ellipse.Angle, Valid: true}
	}

	result, err := r.db.Exec(
		`INSERT INTO results (session_id, entity_id, topic, method, frame_timestamp, confidence,
			center_x, center_y, axis_a, axis_b, angle, diameter, norm_x, norm_y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.EntityID, rec.Topic, rec.Method, rec.Timestamp, rec.Confidence,
		cx, cy, a, b, angle, nullable(rec.Diameter), nullable(rec.NormX), nullable(rec.NormY), rec.CreatedAt,
	)
	if err != nil {
		return err
	}

	rec.ID, err = result.LastInsertId()
	return err
}

// List returns results matching f, most recent frame first.
func (r *ResultRepository) List(f ResultFilter) ([]*Record, error) {
	query := `SELECT id, session_id, entity_id, topic, method, frame_timestamp, confidence,
		center_x, center_y, axis_a, axis_b, angle, diameter, norm_x, norm_y, created_at
		FROM results WHERE 1 = 1`
	var args []any

	if f.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if f.EntityID != nil {
		query += ` AND entity_id = ?`
		args = append(args, *f.EntityID)
	}
	query += ` ORDER BY frame_timestamp DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		var cx, cy, a, b, angle, diameter, normX, normY sql.NullFloat64
		err := rows.Scan(&rec.ID, &rec.SessionID, &rec.EntityID, &rec.Topic, &rec.Method,
			&rec.Timestamp, &rec.Confidence, &cx, &cy, &a, &b, &angle, &diameter, &normX, &normY, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}

		if cx.Valid {
			rec.Ellipse = &Ellipse{
				CenterX: cx.Float64,
				CenterY: cy.Float64,
				AxisA:   a.Float64,
				AxisB:   b.Float64,
				Angle:   angle.Float64,
			}
		}
		rec.Diameter = fromNullable(diameter)
		rec.NormX = fromNullable(normX)
		rec.NormY = fromNullable(normY)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Count returns the number of results stored for a session.
func (r *ResultRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM results WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
