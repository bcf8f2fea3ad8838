package main

import (
	"path/filepath"
	"sync"
)

const (
	playersFile     = "players.json"
	assignmentsFile = "assignments.json"
	stateFile       = "state.json"
)

// Player is one entry in players.json. The display name doubles as the
// player's identity; there is no separate id scheme.
type Player struct {
	ID      string `json:"id"`
	Display string `json:"display"`
}

// Assignment pairs a killer with their secret mission and target.
type Assignment struct {
	Killer   string `json:"killer"`
	KillerID string `json:"killer_id,omitempty"`
	Mission  string `json:"mission"`
	Target   string `json:"target"`
}

// Guess is a player's accusation of who their killer is.
type Guess struct {
	KillerID      string `json:"killer_id"`
	KillerDisplay string `json:"killer_display"`
	Mission       string `json:"mission"`
}

// PlayerState tracks one player's progress, keyed by display name.
// Entries are created lazily on first access and never deleted.
type PlayerState struct {
	MissionDone        bool   `json:"mission_done"`
	Guess              *Guess `json:"guess"`
	Points             int    `json:"points"`
	DiscoveredByTarget bool   `json:"discovered_by_target"`
}

type GameState map[string]*PlayerState

// ensure returns the entry for key, creating the zero-value entry on first use.
func (g GameState) ensure(key string) *PlayerState {
	if state, ok := g[key]; ok {
		return state
	}

	state := &PlayerState{}
	g[key] = state

	return state
}

// gameStore is the persistence boundary. Handlers only ever touch this
// interface, so tests can swap in an in-memory store without going near
// the filesystem.
type gameStore interface {
	Players() ([]Player, error)
	Assignments() ([]Assignment, error)
	State() (GameState, error)
	UpdateState(fn func(GameState) error) (GameState, error)
}

// fileStore keeps everything in flat JSON files under a single directory,
// rewritten wholesale on every save. One mutex covers each full
// read-modify-write cycle so two requests cannot interleave file writes.
type fileStore struct {
	mu  sync.Mutex
	dir string
}

func newFileStore(dir string) *fileStore {
	return &fileStore{dir: dir}
}

func (s *fileStore) Players() ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := []Player{}
	err := readJSONFile(filepath.Join(s.dir, playersFile), &players)

	return players, err
}

func (s *fileStore) Assignments() ([]Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignments := []Assignment{}
	err := readJSONFile(filepath.Join(s.dir, assignmentsFile), &assignments)

	return assignments, err
}

func (s *fileStore) State() (GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadStateLocked()
}

func (s *fileStore) UpdateState(fn func(GameState) error) (GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadStateLocked()
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	if err := writeJSONFile(filepath.Join(s.dir, stateFile), state); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *fileStore) loadStateLocked() (GameState, error) {
	state := make(GameState)
	err := readJSONFile(filepath.Join(s.dir, stateFile), &state)

	return state, err
}
