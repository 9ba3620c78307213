package health

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatusWithoutDatabase(t *testing.T) {
	got := NewService(nil, "local", "none", "").Status(context.Background())
	if got["ok"] != true || got["database"] != "memory" || got["ocr"] != false {
		t.Fatalf("unexpected status %v", got)
	}
}

func TestStatusReportsUnreachableDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	got := NewService(db, "s3", "openai", "5.3.0").Status(context.Background())
	if got["ok"] != false || got["database"] != "unreachable" || got["ocr"] != true {
		t.Fatalf("unexpected status %v", got)
	}
}
