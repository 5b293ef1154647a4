package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/cadence/internal/search"
	"github.com/MrWong99/cadence/pkg/audio"
	"github.com/MrWong99/cadence/pkg/audio/mock"
)

var alice = audio.Requester{ID: "u1", Name: "alice"}

func newResolver(t *testing.T, node *mock.Node, burst int) *search.Resolver {
	t.Helper()
	r, err := search.New(search.Config{Node: node, Rate: 0.001, Burst: burst})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_RequiresNode(t *testing.T) {
	t.Parallel()
	if _, err := search.New(search.Config{}); err == nil {
		t.Fatal("expected error without node")
	}
}

func TestIdentifier(t *testing.T) {
	t.Parallel()
	r := newResolver(t, mock.NewNode(), 1)

	tests := []struct {
		query string
		want  string
	}{
		{"never gonna give you up", "ytsearch:never gonna give you up"},
		{"  padded  ", "ytsearch:padded"},
		{"https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ"},
		{"http://example.com/a.mp3", "http://example.com/a.mp3"},
		{"ftp://example.com/a.mp3", "ytsearch:ftp://example.com/a.mp3"},
		{"https:nohost", "ytsearch:https:nohost"},
	}
	for _, tc := range tests {
		if got := r.Identifier(tc.query); got != tc.want {
			t.Errorf("Identifier(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestResolve_AttributesRequester(t *testing.T) {
	t.Parallel()
	node := mock.NewNode()
	node.SearchResult = audio.SearchResult{Tracks: []audio.Track{mock.Track("A"), mock.Track("B")}}
	r := newResolver(t, node, 5)

	res, err := r.Resolve(context.Background(), alice, "a song")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(res.Tracks))
	}
	for _, tr := range res.Tracks {
		if tr.Requester != alice {
			t.Errorf("track %q requester = %+v", tr, tr.Requester)
		}
	}
	if node.SearchCalls[0] != "ytsearch:a song" {
		t.Errorf("node searched %q", node.SearchCalls[0])
	}
}

func TestResolve_CachesResults(t *testing.T) {
	t.Parallel()
	node := mock.NewNode()
	node.SearchResult = audio.SearchResult{Tracks: []audio.Track{mock.Track("A")}}
	r := newResolver(t, node, 1)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, alice, "q"); err != nil {
		t.Fatal(err)
	}
	// The burst is spent, so only a cache hit can succeed.
	bob := audio.Requester{ID: "u1", Name: "bob"}
	res, err := r.Resolve(ctx, bob, "q")
	if err != nil {
		t.Fatalf("cached Resolve: %v", err)
	}
	if res.Tracks[0].Requester != bob {
		t.Errorf("cached track kept previous requester %+v", res.Tracks[0].Requester)
	}
	if node.SearchCallCount() != 1 {
		t.Errorf("node searched %d times, want 1", node.SearchCallCount())
	}

	r.Purge()
	if _, err := r.Resolve(ctx, alice, "q"); !errors.Is(err, search.ErrRateLimited) {
		t.Errorf("after purge: err = %v, want ErrRateLimited", err)
	}
}

func TestResolve_RateLimitIsPerUser(t *testing.T) {
	t.Parallel()
	node := mock.NewNode()
	node.SearchResult = audio.SearchResult{Tracks: []audio.Track{mock.Track("A")}}
	r := newResolver(t, node, 1)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, alice, "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(ctx, alice, "two"); !errors.Is(err, search.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if _, err := r.Resolve(ctx, audio.Requester{ID: "u2"}, "two"); err != nil {
		t.Errorf("other user limited: %v", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty query", func(t *testing.T) {
		t.Parallel()
		node := mock.NewNode()
		r := newResolver(t, node, 1)
		if _, err := r.Resolve(ctx, alice, "   "); !errors.Is(err, search.ErrNoMatches) {
			t.Errorf("err = %v, want ErrNoMatches", err)
		}
		if node.SearchCallCount() != 0 {
			t.Error("empty query reached the node")
		}
	})

	t.Run("no results", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, mock.NewNode(), 1)
		if _, err := r.First(ctx, alice, "nothing"); !errors.Is(err, search.ErrNoMatches) {
			t.Errorf("err = %v, want ErrNoMatches", err)
		}
	})

	t.Run("node failure", func(t *testing.T) {
		t.Parallel()
		node := mock.NewNode()
		node.SearchError = audio.ErrNodeUnavailable
		r := newResolver(t, node, 1)
		if _, err := r.Resolve(ctx, alice, "q"); !errors.Is(err, audio.ErrNodeUnavailable) {
			t.Errorf("err = %v, want ErrNodeUnavailable", err)
		}
	})
}

func TestFirst(t *testing.T) {
	t.Parallel()
	node := mock.NewNode()
	node.SearchResults = map[string]audio.SearchResult{
		"ytsearch:b": {Tracks: []audio.Track{mock.Track("B1"), mock.Track("B2")}},
	}
	r := newResolver(t, node, 2)

	got, err := r.First(context.Background(), alice, "b")
	if err != nil {
		t.Fatal(err)
	}
	if got.Info.Title != "B1" || got.Requester != alice {
		t.Errorf("First = %q by %+v", got, got.Requester)
	}
}

func TestResolve_CacheExpires(t *testing.T) {
	t.Parallel()
	node := mock.NewNode()
	node.SearchResult = audio.SearchResult{Tracks: []audio.Track{mock.Track("A")}}
	r, err := search.New(search.Config{Node: node, CacheTTL: 20 * time.Millisecond, Burst: 10})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	_, _ = r.Resolve(ctx, alice, "q")
	time.Sleep(60 * time.Millisecond)
	_, _ = r.Resolve(ctx, alice, "q")
	if node.SearchCallCount() != 2 {
		t.Errorf("node searched %d times, want 2 after expiry", node.SearchCallCount())
	}
}
