package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/harborview/taskboard/internal/config"
)

const testDBURLKey = "TASKBOARD_TEST_DATABASE_URL"

func setupHandlerTestDB(t *testing.T) *sql.DB {
	t.Helper()
	connStr := os.Getenv(testDBURLKey)
	if connStr == "" {
		t.Skipf("set %s to a dedicated test database", testDBURLKey)
	}

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	_, err = db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto")
	require.NoError(t, err)

	migrationsDir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)

	m, err := migrate.New("file://"+migrationsDir, connStr)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = m.Close()
	})

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func testRouter(t *testing.T, db *sql.DB) http.Handler {
	t.Helper()
	cfg := config.Config{
		Uploads: config.UploadsConfig{
			Dir:          t.TempDir(),
			MaxSizeBytes: 20 << 20,
		},
	}
	return NewRouter(db, cfg)
}

func insertTestOrganization(t *testing.T, db *sql.DB, slug string) string {
	t.Helper()
	var id string
	err := db.QueryRow(
		"INSERT INTO organizations (name, slug) VALUES ($1, $2) RETURNING id",
		"Org "+slug,
		slug,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertTestUser(t *testing.T, db *sql.DB, orgID, name, role string) string {
	t.Helper()
	var id string
	err := db.QueryRow(
		"INSERT INTO users (org_id, name, role) VALUES ($1, $2, $3) RETURNING id",
		orgID, name, role,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertTestProject(t *testing.T, db *sql.DB, orgID, name, slug string) string {
	t.Helper()
	var id string
	err := db.QueryRow(
		"INSERT INTO projects (org_id, name, slug) VALUES ($1, $2, $3) RETURNING id",
		orgID, name, slug,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// doRequest runs a request through the router with workspace and user headers
// set, returning the recorder.
func doRequest(t *testing.T, router http.Handler, method, target, orgID, userID string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if orgID != "" {
		req.Header.Set("X-Org-ID", orgID)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, router http.Handler, method, target, orgID, userID string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return doRequest(t, router, method, target, orgID, userID, bytes.NewReader(body), "application/json")
}

type testUpload struct {
	name    string
	content []byte
}

// taskMultipartBody builds the multipart body the board client sends: a
// "task" JSON field plus optional "attachments" file parts.
func taskMultipartBody(t *testing.T, fields interface{}, uploads []testUpload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	payload, err := json.Marshal(fields)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("task", string(payload)))

	for _, upload := range uploads {
		part, err := writer.CreateFormFile("attachments", upload.name)
		require.NoError(t, err)
		_, err = part.Write(upload.content)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}
