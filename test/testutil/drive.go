// Package testutil provides fake servers for exercising downloads in tests.
package testutil

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// DriveFile is a file served by a DriveServer.
type DriveFile struct {
	Content string
	// Confirm makes the first request answer with a virus-scan warning page
	// whose form must be submitted to get the content.
	Confirm bool
	// Quota makes every request answer with a "too many users" error page.
	Quota bool
}

// DriveServer imitates the Google Drive "uc" download endpoint.
type DriveServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string]DriveFile
	hits  map[string]int
}

// NewDriveServer starts a DriveServer serving files by id. It is closed
// when the test ends.
func NewDriveServer(t *testing.T, files map[string]DriveFile) *DriveServer {
	t.Helper()
	ds := &DriveServer{files: files, hits: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("/uc", ds.serveUC)
	ds.Server = httptest.NewServer(mux)
	t.Cleanup(ds.Close)
	return ds
}

// DownloadURL returns the direct download URL for id.
func (ds *DriveServer) DownloadURL(id string) string {
	return fmt.Sprintf("%s/uc?id=%s&export=download", ds.Server.URL, id)
}

// Hits returns how many requests were made for id.
func (ds *DriveServer) Hits(id string) int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.hits[id]
}

func (ds *DriveServer) serveUC(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	ds.mu.Lock()
	ds.hits[id]++
	file, ok := ds.files[id]
	ds.mu.Unlock()

	switch {
	case !ok:
		http.NotFound(w, r)
	case file.Quota:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><body><p class="uc-error-subcaption">Too many users have viewed or downloaded this file recently.</p></body></html>`)
	case file.Confirm && r.URL.Query().Get("confirm") != "t":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, `<html><body>
<p>Google Drive can't scan this file for viruses.</p>
<form id="download-form" action="%s/uc" method="get">
<input type="hidden" name="id" value="%s">
<input type="hidden" name="export" value="download">
<input type="hidden" name="confirm" value="t">
<input type="submit" value="Download anyway">
</form></body></html>`, ds.Server.URL, html.EscapeString(id))
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.bin"`, id))
		w.Header().Set("Content-Length", fmt.Sprint(len(file.Content)))
		_, _ = fmt.Fprint(w, file.Content)
	}
}
