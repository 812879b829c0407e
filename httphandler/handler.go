package httphandler

import (
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/telebroad/lanshare/filesystem"
	"github.com/telebroad/lanshare/metrics"
)

var (
	//go:embed index.gohtml
	indexTemplate string

	indexPage = template.Must(template.New("index.gohtml").Parse(indexTemplate))
)

// Index serves the browser UI, the secret is embedded in the page
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Name   string
		Secret string
	}{
		Name:   s.Name,
		Secret: s.user.Password,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, data); err != nil {
		s.Logger().Error("error rendering index", "error", err)
	}
}

type infoResponse struct {
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Free      *uint64 `json:"free,omitempty"`
	Total     *uint64 `json:"total,omitempty"`
	FreeHuman string  `json:"free_human,omitempty"`
}

// Info reports the service name and the space left on the disk holding the root
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	resp := infoResponse{Name: s.Name, Status: "running"}
	usage, err := filesystem.DiskUsage(s.fs)
	if err != nil {
		s.Logger().Debug("disk usage unavailable", "error", err)
	} else {
		resp.Free = &usage.Avail
		resp.Total = &usage.Total
		resp.FreeHuman = humanize.Bytes(usage.Avail)
	}
	writeJSON(w, http.StatusOK, resp)
}

// List returns the entries of the directory in the path parameter
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	dir, err := s.fs.ResolveExisting(s.fs.RootDir(), queryParam(r, "path", "/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := s.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, "not a directory")
		return
	}
	entries, err := s.fs.Dir(dir)
	if err != nil {
		s.Logger().Warn("error listing directory", "path", s.fs.VirtualPath(dir), "error", err)
		writeError(w, http.StatusInternalServerError, "cannot read directory")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Download streams the file in the path parameter
func (s *Server) Download(w http.ResponseWriter, r *http.Request) {
	name, err := s.fs.ResolveExisting(s.fs.RootDir(), queryParam(r, "path", "/"))
	if errors.Is(err, filesystem.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := s.fs.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusBadRequest, "not a file")
		return
	}
	file, err := s.fs.Open(name)
	if err != nil {
		s.Logger().Warn("error opening file", "path", s.fs.VirtualPath(name), "error", err)
		writeError(w, http.StatusInternalServerError, "cannot open file")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)
	n, err := filesystem.CopyChunks(w, file)
	s.metrics.Transfer(metrics.ProtocolHTTP, metrics.DirectionDownload, n)
	if err != nil {
		s.Logger().Warn("download cut short", "path", s.fs.VirtualPath(name), "bytes", n, "error", err)
	}
}

// Upload stores the request body at the path parameter, missing parent directories are created
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	name, err := s.fs.PrepareNewTarget(s.fs.RootDir(), queryParam(r, "path", "/upload.bin"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	file, err := s.fs.Create(name)
	if err != nil {
		s.Logger().Warn("error creating file", "path", s.fs.VirtualPath(name), "error", err)
		writeError(w, http.StatusInternalServerError, "cannot create file")
		return
	}
	n, err := filesystem.CopyChunks(file, r.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	s.metrics.Transfer(metrics.ProtocolHTTP, metrics.DirectionUpload, n)
	if err != nil {
		s.Logger().Warn("error writing file", "path", s.fs.VirtualPath(name), "bytes", n, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot write file")
		return
	}
	s.Logger().Info("uploaded", "path", s.fs.VirtualPath(name), "bytes", n)
	writeOK(w)
}

// Delete removes the file or directory in the path parameter, the root itself can not be deleted
func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	name, err := s.fs.ResolveExisting(s.fs.RootDir(), queryParam(r, "path", "/"))
	if errors.Is(err, filesystem.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil || name == s.fs.RootDir() {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	err = s.fs.Remove(name)
	if errors.Is(err, filesystem.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		s.Logger().Warn("error deleting", "path", s.fs.VirtualPath(name), "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	s.Logger().Info("deleted", "path", s.fs.VirtualPath(name))
	writeOK(w)
}

// Rename renames the entry in the path parameter to the to parameter
func (s *Server) Rename(w http.ResponseWriter, r *http.Request) {
	s.rename(w, queryParam(r, "path", ""), queryParam(r, "to", ""), "rename failed")
}

// Move moves the entry in the from parameter to the to parameter
func (s *Server) Move(w http.ResponseWriter, r *http.Request) {
	s.rename(w, queryParam(r, "from", ""), queryParam(r, "to", ""), "move failed")
}

func (s *Server) rename(w http.ResponseWriter, from, to, failure string) {
	source, err := s.fs.ResolveExisting(s.fs.RootDir(), from)
	if err != nil || source == s.fs.RootDir() {
		writeError(w, http.StatusBadRequest, "invalid source")
		return
	}
	target, err := s.fs.ResolveNewTarget(s.fs.RootDir(), to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target")
		return
	}
	if err := s.fs.Rename(source, target); err != nil {
		s.Logger().Warn(failure, "from", s.fs.VirtualPath(source), "to", s.fs.VirtualPath(target), "error", err)
		writeError(w, http.StatusInternalServerError, failure)
		return
	}
	s.Logger().Info("renamed", "from", s.fs.VirtualPath(source), "to", s.fs.VirtualPath(target))
	writeOK(w)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// queryParam returns the query parameter, or def when it is not in the query at all
func queryParam(r *http.Request, key, def string) string {
	value, ok := lookupQuery(r.URL.RawQuery, key)
	if !ok {
		return def
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
