package packages

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aosc-dev/pakreq/internal/apperror"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not a url", nil, nil); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
	if _, err := NewClient("https://packages.example.org", nil, nil); err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
}

func TestFindPackage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "json" {
			t.Errorf("missing type=json parameter: %s", r.URL.String())
		}
		switch r.URL.Path {
		case "/packages/libfoo":
			w.Write([]byte(`{"pkg": {"name": "libfoo", "version": "1.2.3"}}`))
		case "/packages/html-only":
			w.Write([]byte(`<html>pretty page</html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	ctx := context.Background()

	pkg, err := c.FindPackage(ctx, "libfoo")
	if err != nil {
		t.Fatalf("FindPackage error: %v", err)
	}
	if pkg == nil || pkg.Name != "libfoo" || pkg.Version != "1.2.3" {
		t.Fatalf("unexpected package: %#v", pkg)
	}

	// A 404 is a miss, not an error.
	pkg, err = c.FindPackage(ctx, "missing")
	if err != nil {
		t.Fatalf("FindPackage error on 404: %v", err)
	}
	if pkg != nil {
		t.Fatalf("expected nil package for 404, got %#v", pkg)
	}

	// So is a body that is not JSON.
	pkg, err = c.FindPackage(ctx, "html-only")
	if err != nil {
		t.Fatalf("FindPackage error on non-JSON: %v", err)
	}
	if pkg != nil {
		t.Fatalf("expected nil package for non-JSON body, got %#v", pkg)
	}
}

func TestSearchPackages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/" {
			http.NotFound(w, r)
			return
		}
		if q := r.URL.Query().Get("q"); q != "foo" {
			t.Errorf("unexpected query: %q", q)
		}
		w.Write([]byte(`{"packages": [{"name": "libfoo", "version": "1.0.0"}, {"name": "foobar", "version": "2.0.0"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	found, err := c.SearchPackages(context.Background(), "foo")
	if err != nil {
		t.Fatalf("SearchPackages error: %v", err)
	}
	if len(found) != 2 || found[0].Name != "libfoo" || found[1].Name != "foobar" {
		t.Fatalf("unexpected results: %#v", found)
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c, err := NewClient(srv.URL, nil, nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	if _, err := c.FindPackage(context.Background(), "libfoo"); !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("expected Unavailable for transport failure, got %v", err)
	}
	if _, err := c.SearchPackages(context.Background(), "libfoo"); !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("expected Unavailable for transport failure, got %v", err)
	}
}
