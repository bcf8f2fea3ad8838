package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/julienschmidt/httprouter"
)

// memStore stands in for fileStore so HTTP tests never touch the filesystem.
type memStore struct {
	mu          sync.Mutex
	players     []Player
	assignments []Assignment
	state       GameState
}

func newMemStore(players []Player, assignments []Assignment) *memStore {
	return &memStore{
		players:     players,
		assignments: assignments,
		state:       make(GameState),
	}
}

func (s *memStore) Players() ([]Player, error) {
	return s.players, nil
}

func (s *memStore) Assignments() ([]Assignment, error) {
	return s.assignments, nil
}

func (s *memStore) State() (GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state, nil
}

func (s *memStore) UpdateState(fn func(GameState) error) (GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.state); err != nil {
		return nil, err
	}

	return s.state, nil
}

const testOrigin = "http://localhost:5173"

func testPlayers() []Player {
	return []Player{
		{ID: "Élodie", Display: "Élodie"},
		{ID: "Bob", Display: "Bob"},
		{ID: "Chloé", Display: "Chloé"},
	}
}

func testAssignments() []Assignment {
	return []Assignment{
		{Killer: "Élodie", Mission: "steal a spoon from the kitchen", Target: "Bob"},
		{Killer: "Bob", Mission: "make your target laugh out loud", Target: "Chloé"},
		{Killer: "Chloé", Mission: "swap two chairs unnoticed", Target: "Élodie"},
	}
}

func newTestGame(t *testing.T) (*memStore, *httptest.Server) {
	t.Helper()

	cfg := &Config{
		origin:      testOrigin,
		frontendURL: testOrigin,
		dataDir:     t.TempDir(),
	}

	store := newMemStore(testPlayers(), testAssignments())
	game := newKillerGame(store)

	errs := make(chan error, 64)
	go func() {
		for range errs {
		}
	}()

	mux := httprouter.New()
	mux.GET("/", serveRoot(cfg, errs))
	game.register(cfg, "/api", mux, errs)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return store, ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func jsonDecode(r io.Reader, dest any) error {
	return json.NewDecoder(r).Decode(dest)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}

	return body
}

func decodeRows(t *testing.T, resp *http.Response) []leaderboardRow {
	t.Helper()

	var rows []leaderboardRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode leaderboard rows: %v", err)
	}

	return rows
}
