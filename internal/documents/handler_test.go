package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docproc-backend/internal/documents"
	"docproc-backend/internal/extract"
	"docproc-backend/internal/llm"
	"docproc-backend/internal/shared/storage/object/local"
)

func newRouter(t *testing.T, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	files := local.New(t.TempDir())
	svc := &documents.Service{
		Repo:           documents.NewMemoryRepo(),
		Files:          files,
		Extractor:      extract.NewDispatcher(files, extract.NewDefaultRegistry(extract.Options{})),
		LLM:            llm.PlaceholderClient{},
		MaxUploadBytes: maxUpload,
	}
	r := gin.New()
	documents.NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func multipartUpload(t *testing.T, name, contentType, body string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(body)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf, w.FormDataContentType()
}

func do(r http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestUploadExtractAndFetch(t *testing.T) {
	r := newRouter(t, 0)

	body, ct := multipartUpload(t, "hello.txt", "text/plain; charset=utf-8", "hello world")
	resp := do(r, http.MethodPost, "/api/v1/documents/upload", body, ct)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created documents.DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 1 || created.Status != documents.StatusPending || created.MimeType != "text/plain" {
		t.Fatalf("unexpected document: %+v", created)
	}

	resp = do(r, http.MethodPost, "/api/v1/documents/1/extract-text", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var extracted documents.ExtractionResponse
	if err := json.NewDecoder(resp.Body).Decode(&extracted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if extracted.Text != "hello world" || extracted.Metadata.Words != 2 || extracted.Metadata.Characters != 11 {
		t.Fatalf("unexpected extraction: %+v", extracted)
	}
	if extracted.Document.Status != documents.StatusCompleted {
		t.Fatalf("expected completed, got %s", extracted.Document.Status)
	}

	resp = do(r, http.MethodGet, "/api/v1/documents/1", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	resp = do(r, http.MethodGet, "/api/v1/documents", nil, "")
	var list []documents.DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one document, got %d", len(list))
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	r := newRouter(t, 0)
	body, ct := multipartUpload(t, "tool.exe", "application/x-msdownload", "MZ")
	resp := do(r, http.MethodPost, "/api/v1/documents/upload", body, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "validation_error") {
		t.Fatalf("expected validation error body, got %s", resp.Body.String())
	}
}

func TestUploadTooLarge(t *testing.T) {
	r := newRouter(t, 4)
	body, ct := multipartUpload(t, "big.txt", "text/plain", "way too big")
	resp := do(r, http.MethodPost, "/api/v1/documents/upload", body, ct)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUploadWithoutFile(t *testing.T) {
	r := newRouter(t, 0)
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	w.WriteField("note", "no file here")
	w.Close()
	resp := do(r, http.MethodPost, "/api/v1/documents/upload", buf, w.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestExtractCorruptPDFReturns500(t *testing.T) {
	r := newRouter(t, 0)
	body, ct := multipartUpload(t, "broken.pdf", "application/pdf", "garbage")
	if resp := do(r, http.MethodPost, "/api/v1/documents/upload", body, ct); resp.Code != http.StatusCreated {
		t.Fatalf("upload: %d", resp.Code)
	}

	resp := do(r, http.MethodPost, "/api/v1/documents/1/extract-text", nil, "")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "extraction_failed" || !strings.Contains(payload.Error.Message, "error processing PDF") {
		t.Fatalf("unexpected error payload: %+v", payload.Error)
	}

	resp = do(r, http.MethodGet, "/api/v1/documents/1", nil, "")
	var doc documents.DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Status != documents.StatusError || doc.ErrorMessage == nil {
		t.Fatalf("expected error status with message, got %+v", doc)
	}
}

func TestNotFoundAndBadID(t *testing.T) {
	r := newRouter(t, 0)
	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/documents/99", http.StatusNotFound},
		{http.MethodPost, "/api/v1/documents/99/extract-text", http.StatusNotFound},
		{http.MethodPost, "/api/v1/documents/99/summarize", http.StatusNotFound},
		{http.MethodPost, "/api/v1/documents/99/analyze", http.StatusNotFound},
		{http.MethodGet, "/api/v1/documents/abc", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/documents?userId=x", http.StatusBadRequest},
	}
	for _, tc := range cases {
		if resp := do(r, tc.method, tc.path, nil, ""); resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
}

func TestSummarizePreconditionAndProvider(t *testing.T) {
	r := newRouter(t, 0)
	body, ct := multipartUpload(t, "hello.txt", "text/plain", "hello world")
	do(r, http.MethodPost, "/api/v1/documents/upload", body, ct)

	resp := do(r, http.MethodPost, "/api/v1/documents/1/summarize", nil, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before extraction, got %d", resp.Code)
	}

	do(r, http.MethodPost, "/api/v1/documents/1/extract-text", nil, "")
	resp = do(r, http.MethodPost, "/api/v1/documents/1/summarize", nil, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without provider, got %d", resp.Code)
	}
}

func TestFormats(t *testing.T) {
	r := newRouter(t, 0)
	resp := do(r, http.MethodGet, "/api/v1/formats", nil, "")
	var payload struct {
		Formats []string `json:"formats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Formats) != 13 || payload.Formats[0] != extract.MimePDF {
		t.Fatalf("unexpected formats: %v", payload.Formats)
	}
}

func TestBaseMediaType(t *testing.T) {
	if got := documents.BaseMediaType("text/csv; charset=utf-8"); got != "text/csv" {
		t.Fatalf("unexpected media type %q", got)
	}
	if got := documents.BaseMediaType(" image/png "); got != "image/png" {
		t.Fatalf("unexpected media type %q", got)
	}
}
