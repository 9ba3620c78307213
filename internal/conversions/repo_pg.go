package conversions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const conversionColumns = `id, document_id, from_format, to_format, status, output_filename, error_message, created_at, completed_at`

func (r *PGRepo) Create(ctx context.Context, in NewConversion) (Conversion, error) {
	query := `
INSERT INTO conversions (document_id, from_format, to_format, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + conversionColumns
	return scanConversion(r.DB.QueryRowContext(ctx, query, in.DocumentID, in.FromFormat, in.ToFormat, string(StatusPending)))
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1`
	return scanConversion(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) Update(ctx context.Context, id int64, p Patch) (Conversion, error) {
	if p.Empty() {
		return r.GetByID(ctx, id)
	}
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.OutputFilename.Set {
		add("output_filename", p.OutputFilename.Arg())
	}
	if p.ErrorMessage.Set {
		add("error_message", p.ErrorMessage.Arg())
	}
	if p.CompletedAt.Set {
		add("completed_at", p.CompletedAt.Arg())
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE conversions SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), conversionColumns)
	return scanConversion(r.DB.QueryRowContext(ctx, query, args...))
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID int64) ([]Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE document_id = $1 ORDER BY id ASC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Conversion{}
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (Conversion, error) {
	var (
		c              Conversion
		status         string
		outputFilename sql.NullString
		errorMessage   sql.NullString
		completedAt    sql.NullTime
	)
	err := row.Scan(&c.ID, &c.DocumentID, &c.FromFormat, &c.ToFormat, &status,
		&outputFilename, &errorMessage, &c.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversion{}, ErrNotFound
		}
		return Conversion{}, err
	}
	c.Status = Status(status)
	if outputFilename.Valid {
		c.OutputFilename = &outputFilename.String
	}
	if errorMessage.Valid {
		c.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		c.CompletedAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

var _ Repo = (*PGRepo)(nil)
