package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/debtower/pkg/debian"
	"github.com/matzehuels/debtower/pkg/refcount"
)

const index = `Package: curl
Depends: libcurl4 (>= 7.88), libc6
Description: command line tool
 for transferring data

Package: libcurl4
Depends: libssl3, libc6

Package: libssl3
Depends: libc6, libgone

Package: libc6
Conffiles:
 /etc/ld.so.conf
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat, _, err := debian.ParseIndex(index, debian.Options{})
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	counts, err := refcount.Aggregate(context.Background(), cat, refcount.Options{Workers: 2})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return New(NewSnapshot(cat, counts, "test"), nil)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[healthResponse](t, rec)
	if resp.Status != "ok" || resp.Packages != 4 || resp.Source != "test" {
		t.Errorf("health = %+v", resp)
	}
}

func TestGetPackage(t *testing.T) {
	rec := get(t, newTestServer(t), "/packages/curl")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decode[packageResponse](t, rec)
	if resp.Name != "curl" || resp.RefCount != 1 {
		t.Errorf("package = %+v", resp)
	}
	if len(resp.Dependencies) != 2 || resp.Dependencies[0].Version != ">= 7.88" {
		t.Errorf("dependencies = %+v", resp.Dependencies)
	}
	if resp.Fields["Description"] != "command line toolfor transferring data" {
		t.Errorf("Description = %v", resp.Fields["Description"])
	}
}

func TestGetPackage_ListField(t *testing.T) {
	resp := decode[packageResponse](t, get(t, newTestServer(t), "/packages/libc6"))
	items, ok := resp.Fields["Conffiles"].([]any)
	if !ok || len(items) != 1 || items[0] != "/etc/ld.so.conf" {
		t.Errorf("Conffiles = %#v", resp.Fields["Conffiles"])
	}
	if resp.Dependencies == nil {
		t.Error("dependencies should encode as an empty array")
	}
	if resp.RefCount != 4 {
		t.Errorf("libc6 refcount = %d, want 4", resp.RefCount)
	}
}

func TestGetClosure(t *testing.T) {
	resp := decode[closureResponse](t, get(t, newTestServer(t), "/packages/curl/closure"))
	want := []string{"curl", "libcurl4", "libssl3", "libc6", "libgone"}
	if !slices.Equal(resp.Closure, want) || resp.Size != len(want) {
		t.Errorf("closure = %+v, want %v", resp, want)
	}
}

func TestGetGraph(t *testing.T) {
	rec := get(t, newTestServer(t), "/packages/libssl3/graph")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "digraph") || !strings.Contains(body, `"libssl3" -> "libc6"`) {
		t.Errorf("graph body =\n%s", body)
	}
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/packages/nginx", http.StatusNotFound, "PACKAGE_NOT_FOUND"},
		{"/packages/nginx/closure", http.StatusNotFound, "PACKAGE_NOT_FOUND"},
		{"/packages/Bad_Name", http.StatusBadRequest, "INVALID_PACKAGE"},
		{"/counts/nginx", http.StatusNotFound, "PACKAGE_NOT_FOUND"},
		{"/counts?limit=-1", http.StatusBadRequest, "INVALID_INPUT"},
		{"/counts?limit=x", http.StatusBadRequest, "INVALID_INPUT"},
		{"/nowhere", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if resp := decode[errorResponse](t, rec); resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestListCounts(t *testing.T) {
	srv := newTestServer(t)

	all := decode[countsResponse](t, get(t, srv, "/counts"))
	if all.Total != 5 || len(all.Entries) != 5 {
		t.Fatalf("counts = %+v", all)
	}
	if all.Entries[0] != (refcount.Entry{Name: "libc6", Count: 4}) {
		t.Errorf("first entry = %+v", all.Entries[0])
	}

	top := decode[countsResponse](t, get(t, srv, "/counts?limit=2"))
	if top.Total != 5 || len(top.Entries) != 2 {
		t.Errorf("limited counts = %+v", top)
	}

	none := decode[countsResponse](t, get(t, srv, "/counts?limit=0"))
	if none.Entries == nil || len(none.Entries) != 0 {
		t.Errorf("limit=0 entries = %#v", none.Entries)
	}
}

func TestGetCount(t *testing.T) {
	// libgone is missing from the catalog but still counted
	resp := decode[refcount.Entry](t, get(t, newTestServer(t), "/counts/libgone"))
	if resp != (refcount.Entry{Name: "libgone", Count: 3}) {
		t.Errorf("count = %+v", resp)
	}
}

func TestUpdate(t *testing.T) {
	srv := newTestServer(t)
	cat, _, _ := debian.ParseIndex("Package: solo\n", debian.Options{})
	srv.Update(NewSnapshot(cat, refcount.Counts{"solo": 1}, "next"))

	if resp := decode[healthResponse](t, get(t, srv, "/healthz")); resp.Packages != 1 || resp.Source != "next" {
		t.Errorf("health after update = %+v", resp)
	}
	if rec := get(t, srv, "/packages/curl"); rec.Code != http.StatusNotFound {
		t.Errorf("old package still served: %d", rec.Code)
	}
}
