package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateFileName is the serialized state document inside a session's
// working directory.
const StateFileName = "state.json"

// Scene is one unit of story text paired with at most one
// illustration. ImageFile is empty when generation failed; otherwise
// it names a file inside the session workdir.
type Scene struct {
	Text      string `json:"text"`
	ImageFile string `json:"image_file,omitempty"`
}

// Styles holds the typography applied when assembling the storybook.
type Styles struct {
	FontName string `json:"font_name"`
	FontSize int    `json:"font_size"`
}

// State is the mutable per-session record. MasterPrompt is fixed at
// creation; everything else changes through the session operations.
// Scene order and count never change after creation.
type State struct {
	MasterPrompt string  `json:"master_prompt"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Styles       Styles  `json:"styles"`
	Scenes       []Scene `json:"scenes"`
}

// DefaultStyles are applied to every new session.
func DefaultStyles() Styles {
	return Styles{FontName: "Helvetica", FontSize: 14}
}

// LoadState reads the state document from workdir.
func LoadState(workdir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(workdir, StateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("state document: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("read state document: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state document: %w", err)
	}
	return &st, nil
}

// Save serializes the whole document back into workdir. Concurrent
// saves of the same session are last-write-wins.
func (st *State) Save(workdir string) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state document: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, StateFileName), data, 0o644); err != nil {
		return fmt.Errorf("write state document: %w", err)
	}
	return nil
}

// ImagePath resolves a scene's image reference against workdir.
// Returns false when the scene has no image on disk.
func (st *State) ImagePath(workdir string, index int) (string, bool) {
	if index < 0 || index >= len(st.Scenes) {
		return "", false
	}
	name := st.Scenes[index].ImageFile
	if name == "" {
		return "", false
	}
	p := filepath.Join(workdir, name)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}
