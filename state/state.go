package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inkwell-editor/inkwell/paths"
	"gopkg.in/yaml.v3"
)

// State represents locally persisted editor state as a generic map of
// key-value pairs. The access token lives here under KeyToken; absence of
// that key means logged-out.
type State map[string]interface{}

// Well-known state keys.
const (
	KeyToken    = "token"
	KeyLastRepo = "last_repo"
	KeyLastPath = "last_path"
)

const stateFileName = "state.yml"

// Store reads and writes the state file in a fixed directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the default state directory.
func NewStore() *Store {
	return NewStoreAt(paths.StateDir())
}

// NewStoreAt creates a store rooted at dir. Used by tests.
func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) filePath() string {
	return filepath.Join(s.dir, stateFileName)
}

// Load loads the state from the state file.
// Returns an empty state if the file doesn't exist.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	if state == nil {
		state = make(State)
	}

	return state, nil
}

// Save saves the state to the state file. The file is written with owner-only
// permissions since it holds the access token.
func (s *Store) Save(state State) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(s.filePath(), data, 0600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// Get retrieves a string value from the state. Returns "" when absent or not
// a string.
func (s *Store) Get(key string) (string, error) {
	state, err := s.Load()
	if err != nil {
		return "", err
	}
	val, _ := state[key].(string)
	return val, nil
}

// Set stores a string value under key.
func (s *Store) Set(key, value string) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	state[key] = value
	return s.Save(state)
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := state[key]; !ok {
		return nil
	}
	delete(state, key)
	return s.Save(state)
}
