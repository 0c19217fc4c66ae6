package api

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/kbase/internal/logger"
)

// listedExtensions are the source types shown by GET /sources.
var listedExtensions = map[string]bool{
	".md":  true,
	".txt": true,
	".pdf": true,
}

// SourceFile describes one file in the docs directory.
type SourceFile struct {
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
	DownloadURL  string `json:"downloadUrl"`
}

// SourceList is the body of GET /sources.
type SourceList struct {
	Files []SourceFile `json:"files"`
}

// UploadResult is the body of a successful POST /sources.
type UploadResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	files, err := listSources(s.docsDir)
	if err != nil {
		logger.Error("[%s] list sources: %v", RequestID(r.Context()), err)
		writeDetail(w, http.StatusInternalServerError, "failed to list source files")
		return
	}
	writeJSON(w, http.StatusOK, SourceList{Files: files})
}

// listSources returns the top-level source files of dir by name. A
// missing directory lists as empty.
func listSources(dir string) ([]SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !listedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Filename:     e.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime().UTC().Format(time.RFC3339Nano),
			DownloadURL:  "/sources/" + e.Name(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if !validFilename(name) {
		writeDetail(w, http.StatusBadRequest, "invalid filename")
		return
	}

	root, err := os.OpenRoot(s.docsDir)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "file not found")
		return
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeDetail(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// validFilename accepts a single path element that is not hidden.
func validFilename(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.IsLocal(name)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// handleUploadSources replaces the docs directory contents with the
// files of an uploaded zip archive. The index is not rebuilt.
func (s *Server) handleUploadSources(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".zip") {
		writeDetail(w, http.StatusBadRequest, "only zip files are supported")
		return
	}

	archive, err := zip.NewReader(file, header.Size)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid zip archive: "+err.Error())
		return
	}
	if err := checkArchive(archive); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := clearFiles(s.docsDir); err != nil {
		logger.Error("[%s] clear %s: %v", RequestID(r.Context()), s.docsDir, err)
		writeDetail(w, http.StatusInternalServerError, "failed to process the uploaded file")
		return
	}
	files, err := extractArchive(archive, s.docsDir)
	if err != nil {
		logger.Error("[%s] extract upload: %v", RequestID(r.Context()), err)
		writeDetail(w, http.StatusInternalServerError, "failed to process the uploaded file")
		return
	}

	logger.Info("[%s] extracted %d files into %s", RequestID(r.Context()), len(files), s.docsDir)
	writeJSON(w, http.StatusOK, UploadResult{
		Success: true,
		Message: "zip file uploaded and extracted, rebuild the index to search it",
		Files:   files,
	})
}

// checkArchive rejects entries that would land outside the target directory.
func checkArchive(archive *zip.Reader) error {
	for _, f := range archive.File {
		if !filepath.IsLocal(filepath.FromSlash(f.Name)) {
			return fmt.Errorf("archive entry %q escapes the target directory", f.Name)
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("archive entry %q is a symlink", f.Name)
		}
	}
	return nil
}

// clearFiles removes the regular files at the top level of dir, creating
// dir when missing.
func clearFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.MkdirAll(dir, 0o755)
		}
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// extractArchive writes the archive's files under dir through an os.Root,
// so neither entry names nor symlinks already inside dir can place a file
// outside it. It returns the extracted file names in archive order.
func extractArchive(archive *zip.Reader, dir string) ([]string, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	files := []string{}
	for _, f := range archive.File {
		name := filepath.FromSlash(path.Clean(f.Name))
		if f.FileInfo().IsDir() {
			if err := mkdirAll(root, name); err != nil {
				return files, fmt.Errorf("%s: %w", f.Name, err)
			}
			continue
		}
		if parent := filepath.Dir(name); parent != "." {
			if err := mkdirAll(root, parent); err != nil {
				return files, fmt.Errorf("%s: %w", f.Name, err)
			}
		}
		if err := extractFile(root, f, name); err != nil {
			return files, fmt.Errorf("%s: %w", f.Name, err)
		}
		files = append(files, path.Clean(f.Name))
	}
	return files, nil
}

// mkdirAll creates each element of name inside root.
func mkdirAll(root *os.Root, name string) error {
	var cur string
	for _, part := range strings.Split(name, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		if err := root.Mkdir(cur, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

func extractFile(root *os.Root, f *zip.File, name string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadBody)); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
