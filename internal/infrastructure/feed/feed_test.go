package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/infrastructure/transport"
)

func writeBatch(t *testing.T, root, day, body string) {
	t.Helper()
	dir := filepath.Join(root, day)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backlinks.json"), []byte(body), 0o644))
}

func TestDirectoryFeedPicksNewestDay(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeBatch(t, root, "2025-02-27", `{"totalOpportunities":1,"opportunities":[{"domain":"old.com"}]}`)
	writeBatch(t, root, "2025-03-01", `{"totalOpportunities":2,"opportunities":[{"domain":"new.com","url":"https://new.com/x","domainRank":70,"competitor":"c.com"},{"domain":"b.com"}]}`)
	// newest day without a feed file is skipped
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2025-03-02"), 0o755))
	// non-day directories are ignored
	writeBatch(t, root, "archive", `{"opportunities":[{"domain":"ignored.com"}]}`)

	batch, err := NewDirectoryFeed(root, "backlinks.json", nil).Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, batch.TotalOpportunities)
	require.Len(t, batch.Opportunities, 2)
	assert.Equal(t, domain.Opportunity{Domain: "new.com", URL: "https://new.com/x", DomainRank: 70, Competitor: "c.com"}, batch.Opportunities[0])
}

func TestDirectoryFeedNotFound(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing root": filepath.Join(t.TempDir(), "absent"),
		"no feed file": t.TempDir(),
	}

	for name, root := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewDirectoryFeed(root, "backlinks.json", nil).Latest(context.Background())
			assert.True(t, errors.Is(err, domain.ErrInputNotFound))
		})
	}
}

func TestDirectoryFeedCorrupt(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeBatch(t, root, "2025-03-01", `{"opportunities": [`)

	_, err := NewDirectoryFeed(root, "backlinks.json", nil).Latest(context.Background())
	assert.True(t, errors.Is(err, domain.ErrCorruptArtifact))
}

func singleAttempt(srv *httptest.Server) *transport.Client {
	return transport.New(srv.Client(), transport.Policy{
		MaxAttempts: 1,
		Backoff:     func(int) time.Duration { return 0 },
	}, nil)
}

func TestHTTPFeedMergesAndSkipsFailures(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"totalOpportunities":2,"opportunities":[{"domain":"a1.com","domainRank":50},{"domain":"a2.com","domainRank":30}]}`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"totalOpportunities":2,"opportunities":[{"domain":"b1.com","domainRank":80},{"domain":"b2.com","domainRank":30}]}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	feed := NewHTTPFeed([]string{srv.URL + "/a", srv.URL + "/broken", srv.URL + "/b"}, singleAttempt(srv), nil, nil)
	batch, err := feed.Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, batch.TotalOpportunities)
	var got []string
	for _, o := range batch.Opportunities {
		got = append(got, o.Domain)
	}
	// rank ties keep source order
	assert.Equal(t, []string{"b1.com", "a1.com", "a2.com", "b2.com"}, got)
}

func TestHTTPFeedAllSourcesFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewHTTPFeed([]string{srv.URL}, singleAttempt(srv), nil, nil).Latest(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInputNotFound))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(NewDirectoryFeed(t.TempDir(), "backlinks.json", nil))
	r.Register(NewHTTPFeed(nil, transport.New(nil, transport.DefaultPolicy(), nil), nil, nil))

	assert.Equal(t, []string{"directory", "http"}, r.Names())

	f, err := r.Resolve("http")
	require.NoError(t, err)
	assert.Equal(t, "http", f.Name())

	_, err = r.Resolve("ftp")
	assert.Error(t, err)
}
