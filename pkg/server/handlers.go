package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/debtower/pkg/dag"
	"github.com/matzehuels/debtower/pkg/debian"
	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
)

type healthResponse struct {
	Status   string `json:"status"`
	Packages int    `json:"packages"`
	Source   string `json:"source"`
	BuiltAt  string `json:"built_at"`
}

type packageResponse struct {
	Name         string              `json:"name"`
	Fields       map[string]any      `json:"fields"`
	Dependencies []debian.Dependency `json:"dependencies"`
	RefCount     int                 `json:"refcount"`
}

type closureResponse struct {
	Name    string   `json:"name"`
	Size    int      `json:"size"`
	Closure []string `json:"closure"`
}

type countsResponse struct {
	Total   int              `json:"total"`
	Entries []refcount.Entry `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap := s.snap.Load()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Packages: snap.Catalog.Len(),
		Source:   snap.Source,
		BuiltAt:  snap.BuiltAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) getPackage(w http.ResponseWriter, r *http.Request) {
	snap := s.snap.Load()
	p, err := lookup(snap, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		if v.IsList() {
			fields[k] = v.Items()
		} else {
			fields[k] = v.Scalar()
		}
	}
	deps := p.Dependencies
	if deps == nil {
		deps = []debian.Dependency{}
	}
	writeJSON(w, http.StatusOK, packageResponse{
		Name:         p.Name,
		Fields:       fields,
		Dependencies: deps,
		RefCount:     snap.Counts[p.Name],
	})
}

func (s *Server) getClosure(w http.ResponseWriter, r *http.Request) {
	snap := s.snap.Load()
	p, err := lookup(snap, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	closure := refcount.Closure(snap.Catalog, p.Name)
	writeJSON(w, http.StatusOK, closureResponse{Name: p.Name, Size: len(closure), Closure: closure})
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	snap := s.snap.Load()
	p, err := lookup(snap, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := refcount.Subgraph(snap.Catalog, p.Name)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "build graph"))
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	fmt.Fprint(w, dag.ToDOT(g, dag.Options{Counts: snap.Counts}))
}

func (s *Server) listCounts(w http.ResponseWriter, r *http.Request) {
	snap := s.snap.Load()
	entries := snap.sorted
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		if n < len(entries) {
			entries = entries[:n]
		}
	}
	if entries == nil {
		entries = []refcount.Entry{}
	}
	writeJSON(w, http.StatusOK, countsResponse{Total: len(snap.sorted), Entries: entries})
}

func (s *Server) getCount(w http.ResponseWriter, r *http.Request) {
	snap := s.snap.Load()
	name := chi.URLParam(r, "name")
	if err := errors.ValidatePackageName(name); err != nil {
		writeError(w, err)
		return
	}
	n, ok := snap.Counts[name]
	if !ok {
		writeError(w, errors.New(errors.ErrCodePackageNotFound, "%s appears in no closure", name))
		return
	}
	writeJSON(w, http.StatusOK, refcount.Entry{Name: name, Count: n})
}

func lookup(snap *Snapshot, name string) (*debian.Package, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	p, ok := snap.Catalog.Get(name)
	if !ok {
		return nil, errors.New(errors.ErrCodePackageNotFound, "package %s not in catalog", name)
	}
	return p, nil
}

func errNotFound(format string, args ...any) error {
	return errors.New(errors.ErrCodeNotFound, format, args...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorResponse{Error: errors.UserMessage(err), Code: string(code)})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodePackageNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPackage:
		return http.StatusBadRequest
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
