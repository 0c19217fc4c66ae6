package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestListSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "# B")
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "c.pdf", "%PDF")
	writeFile(t, dir, "ignored.go", "package x")
	writeFile(t, dir, "nested/d.md", "# D")
	srv := NewServer(&mockAnswerService{}, dir)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/sources", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var list SourceList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Files, 3)

	names := []string{list.Files[0].Filename, list.Files[1].Filename, list.Files[2].Filename}
	assert.Equal(t, []string{"a.txt", "b.md", "c.pdf"}, names)
	assert.Equal(t, int64(5), list.Files[0].Size)
	assert.Equal(t, "/sources/a.txt", list.Files[0].DownloadURL)
	assert.NotEmpty(t, list.Files[0].LastModified)
}

func TestListSources_MissingDir(t *testing.T) {
	srv := NewServer(&mockAnswerService{}, filepath.Join(t.TempDir(), "missing"))

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/sources", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}

func TestGetSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "france.md", "Paris is the capital of France.")
	srv := NewServer(&mockAnswerService{}, dir)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/sources/france.md", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Paris is the capital of France.", rec.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="france.md"`)
}

func TestGetSource_NotFound(t *testing.T) {
	srv := NewServer(&mockAnswerService{}, t.TempDir())

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/sources/missing.md", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "file not found", decodeDetail(t, rec))
}

func TestGetSource_DirectoryIsNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sub/x.md", "x")
	srv := NewServer(&mockAnswerService{}, dir)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/sources/sub", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSource_RejectsTraversal(t *testing.T) {
	parent := t.TempDir()
	docs := filepath.Join(parent, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	writeFile(t, parent, "secret.txt", "TOP-SECRET-DATA")
	writeFile(t, docs, ".env", "KEY=1")
	srv := NewServer(&mockAnswerService{}, docs)

	for _, target := range []string{"/sources/..%5csecret.txt", "/sources/.env"} {
		t.Run(target, func(t *testing.T) {
			rec := doRequest(t, srv.Handler(), http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotContains(t, rec.Body.String(), "TOP-SECRET-DATA")
		})
	}

	t.Run("encoded slash", func(t *testing.T) {
		rec := doRequest(t, srv.Handler(), http.MethodGet, "/sources/..%2fsecret.txt", "")
		assert.NotEqual(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "TOP-SECRET-DATA")
	})
}

func TestValidFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"doc.md", true},
		{"my notes.txt", true},
		{"", false},
		{"..", false},
		{".hidden", false},
		{"a/b.md", false},
		{`a\b.md`, false},
		{"/etc/passwd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validFilename(tt.name))
		})
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sources", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadSources_ReplacesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.md", "stale")
	srv := NewServer(&mockAnswerService{}, dir)

	archive := buildZip(t, map[string]string{
		"new.md":         "# New",
		"guides/deep.md": "# Deep",
	})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "docs.zip", archive))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.ElementsMatch(t, []string{"new.md", "guides/deep.md"}, result.Files)

	assert.NoFileExists(t, filepath.Join(dir, "old.md"))
	assert.FileExists(t, filepath.Join(dir, "new.md"))
	assert.FileExists(t, filepath.Join(dir, "guides", "deep.md"))
}

func TestUploadSources_DoesNotFollowExistingSymlink(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dir, "sub")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	srv := NewServer(&mockAnswerService{}, dir)

	archive := buildZip(t, map[string]string{"sub/x.md": "# Escaped"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "docs.zip", archive))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoFileExists(t, filepath.Join(outside, "x.md"))
}

func TestUploadSources_Rejects(t *testing.T) {
	t.Run("not a zip name", func(t *testing.T) {
		srv := NewServer(&mockAnswerService{}, t.TempDir())
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, uploadRequest(t, "docs.tar", []byte("x")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("corrupt archive", func(t *testing.T) {
		srv := NewServer(&mockAnswerService{}, t.TempDir())
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, uploadRequest(t, "docs.zip", []byte("not a zip")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("escaping entry leaves docs untouched", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "keep.md", "keep")
		srv := NewServer(&mockAnswerService{}, dir)

		archive := buildZip(t, map[string]string{"../evil.md": "x"})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, uploadRequest(t, "docs.zip", archive))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.FileExists(t, filepath.Join(dir, "keep.md"))
		assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "evil.md"))
	})

	t.Run("no file field", func(t *testing.T) {
		srv := NewServer(&mockAnswerService{}, t.TempDir())
		rec := doRequest(t, srv.Handler(), http.MethodPost, "/sources", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
