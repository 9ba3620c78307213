package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"docproc-backend/internal/extract"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, filename, original_name, mime_type, size, status, extracted_text, metadata, summary, error_message, uploaded_at, processed_at, user_id`

// Create inserts a new pending document. The id comes from the BIGSERIAL sequence.
func (r *PGRepo) Create(ctx context.Context, in NewDocument) (Document, error) {
	query := `
INSERT INTO documents (filename, original_name, mime_type, size, status, user_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + documentColumns

	var userID any
	if in.UserID != nil {
		userID = *in.UserID
	}
	return scanDocument(r.DB.QueryRowContext(ctx, query,
		in.Filename,
		in.OriginalName,
		in.MimeType,
		in.Size,
		string(StatusPending),
		userID,
	))
}

// GetByID fetches a document by id.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// Update applies the present patch fields in one statement.
func (r *PGRepo) Update(ctx context.Context, id int64, p Patch) (Document, error) {
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
	if p.ExtractedText.Set {
		add("extracted_text", p.ExtractedText.Arg())
	}
	if p.Metadata.Set {
		var v any
		if p.Metadata.Value != nil {
			raw, err := json.Marshal(p.Metadata.Value)
			if err != nil {
				return Document{}, fmt.Errorf("encode metadata: %w", err)
			}
			v = string(raw)
		}
		add("metadata", v)
	}
	if p.Summary.Set {
		add("summary", p.Summary.Arg())
	}
	if p.ErrorMessage.Set {
		add("error_message", p.ErrorMessage.Arg())
	}
	if p.ProcessedAt.Set {
		add("processed_at", p.ProcessedAt.Arg())
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE documents SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), documentColumns)
	return scanDocument(r.DB.QueryRowContext(ctx, query, args...))
}

// List returns documents ordered by id, optionally for one owner.
func (r *PGRepo) List(ctx context.Context, userID *int64) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc           Document
		status        string
		extractedText sql.NullString
		metadata      []byte
		summary       sql.NullString
		errorMessage  sql.NullString
		processedAt   sql.NullTime
		userID        sql.NullInt64
	)
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.OriginalName,
		&doc.MimeType,
		&doc.Size,
		&status,
		&extractedText,
		&metadata,
		&summary,
		&errorMessage,
		&doc.UploadedAt,
		&processedAt,
		&userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}

	doc.Status = Status(status)
	if extractedText.Valid {
		doc.ExtractedText = &extractedText.String
	}
	if len(metadata) > 0 {
		var md extract.Metadata
		if err := json.Unmarshal(metadata, &md); err != nil {
			return Document{}, fmt.Errorf("decode metadata: %w", err)
		}
		doc.Metadata = &md
	}
	if summary.Valid {
		doc.Summary = &summary.String
	}
	if errorMessage.Valid {
		doc.ErrorMessage = &errorMessage.String
	}
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		doc.ProcessedAt = &t
	}
	if userID.Valid {
		doc.UserID = &userID.Int64
	}
	doc.UploadedAt = doc.UploadedAt.UTC()
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
