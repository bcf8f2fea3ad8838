package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreAbsentFilesReadAsEmpty(t *testing.T) {
	store := newFileStore(t.TempDir())

	players, err := store.Players()
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if len(players) != 0 {
		t.Errorf("expected no players, got %d", len(players))
	}

	assignments, err := store.Assignments()
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("expected no assignments, got %d", len(assignments))
	}

	state, err := store.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if len(state) != 0 {
		t.Errorf("expected empty state, got %d entries", len(state))
	}
}

func TestFileStoreReadsSeededFiles(t *testing.T) {
	dir := t.TempDir()

	playersJSON := `[{"id": "Élodie", "display": "Élodie"}, {"id": "Bob", "display": "Bob"}]`
	if err := os.WriteFile(filepath.Join(dir, playersFile), []byte(playersJSON), 0644); err != nil {
		t.Fatal(err)
	}

	assignmentsJSON := `[{"killer": "Élodie", "mission": "steal a spoon", "target": "Bob"}]`
	if err := os.WriteFile(filepath.Join(dir, assignmentsFile), []byte(assignmentsJSON), 0644); err != nil {
		t.Fatal(err)
	}

	store := newFileStore(dir)

	players, err := store.Players()
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if len(players) != 2 || players[0].Display != "Élodie" {
		t.Errorf("unexpected players: %+v", players)
	}

	assignments, err := store.Assignments()
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(assignments) != 1 || assignments[0].Target != "Bob" {
		t.Errorf("unexpected assignments: %+v", assignments)
	}
}

func TestFileStoreStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := newFileStore(dir)

	if _, err := store.UpdateState(func(state GameState) error {
		state.ensure("Élodie").MissionDone = true
		state.ensure("Bob").Guess = &Guess{
			KillerID:      "Chloé",
			KillerDisplay: "Chloé",
			Mission:       "swap two chairs unnoticed",
		}
		return nil
	}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	// A fresh store over the same directory sees the persisted state.
	reopened := newFileStore(dir)
	state, err := reopened.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}

	if !state["Élodie"].MissionDone {
		t.Error("expected Élodie's mission_done to persist")
	}
	if state["Bob"].Guess == nil || state["Bob"].Guess.KillerDisplay != "Chloé" {
		t.Errorf("expected Bob's guess to persist, got %+v", state["Bob"].Guess)
	}
}

func TestFileStoreWritesHumanReadableJSON(t *testing.T) {
	dir := t.TempDir()
	store := newFileStore(dir)

	if _, err := store.UpdateState(func(state GameState) error {
		state.ensure("Bob")
		return nil
	}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}

	if !strings.Contains(string(data), "\n  \"Bob\"") {
		t.Errorf("expected indented state file, got:\n%s", data)
	}
}

func TestFileStoreMalformedStateFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store := newFileStore(dir)
	if _, err := store.State(); err == nil {
		t.Error("expected error for malformed state file")
	}
}
