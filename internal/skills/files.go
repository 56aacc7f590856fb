package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahul/seif/internal/browser"
)

// Workspace confines file skills to a single directory tree.
type Workspace struct {
	Root string
}

func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace %s: %w", root, err)
	}
	return &Workspace{Root: absRoot}, nil
}

// Path resolves name inside the workspace, appending ext when missing.
func (w *Workspace) Path(name, ext string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: filename", ErrMissingArgument)
	}
	if ext != "" && !strings.HasSuffix(name, ext) {
		name += ext
	}
	target := filepath.Join(w.Root, name)

	rel, err := filepath.Rel(w.Root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe path attempt: %s", name)
	}
	return target, nil
}

func (w *Workspace) write(name, ext string, data []byte) (string, error) {
	target, err := w.Path(name, ext)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return w.rel(target), nil
}

func (w *Workspace) read(name string) ([]byte, string, error) {
	target, err := w.Path(name, "")
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file %s does not exist", name)
		}
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	return data, w.rel(target), nil
}

func (w *Workspace) rel(target string) string {
	if rel, err := filepath.Rel(w.Root, target); err == nil {
		return rel
	}
	return target
}

type SaveTextSkill struct{ ws *Workspace }

func (s *SaveTextSkill) Verb() string        { return "SAVE_TEXT" }
func (s *SaveTextSkill) Description() string { return "Save text to a .txt file in the workspace." }
func (s *SaveTextSkill) Usage() string       { return `SAVE_TEXT "text" "filename"` }

func (s *SaveTextSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if err := need(args, 2, s.Usage()); err != nil {
		return "", err
	}
	name, err := s.ws.write(args[1], ".txt", []byte(args[0]))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Text saved to %s", name), nil
}

type LoadTextSkill struct{ ws *Workspace }

func (s *LoadTextSkill) Verb() string        { return "LOAD_TEXT" }
func (s *LoadTextSkill) Description() string { return "Load a text file from the workspace." }
func (s *LoadTextSkill) Usage() string       { return `LOAD_TEXT "filename"` }

func (s *LoadTextSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if err := need(args, 1, s.Usage()); err != nil {
		return "", err
	}
	data, name, err := s.ws.read(args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Loaded text from %s\n%s", name, preview(string(data), 200)), nil
}

type SaveJSONSkill struct{ ws *Workspace }

func (s *SaveJSONSkill) Verb() string        { return "SAVE_JSON" }
func (s *SaveJSONSkill) Description() string {
	return "Validate a JSON string and save it indented to a .json file. Single quotes stand in for double quotes."
}
func (s *SaveJSONSkill) Usage() string { return `SAVE_JSON "{'key': 'value'}" "filename"` }

func (s *SaveJSONSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if err := need(args, 2, s.Usage()); err != nil {
		return "", err
	}
	v, err := decodeJSONArg(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid JSON data: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	name, err := s.ws.write(args[1], ".json", data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JSON data saved to %s", name), nil
}

// decodeJSONArg accepts plain JSON or JSON written with single quotes, since a
// plan argument cannot carry a double quote.
func decodeJSONArg(raw string) (any, error) {
	var v any
	err := json.Unmarshal([]byte(raw), &v)
	if err == nil || !strings.Contains(raw, "'") {
		return v, err
	}
	if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, "'", `"`)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

type LoadJSONSkill struct{ ws *Workspace }

func (s *LoadJSONSkill) Verb() string        { return "LOAD_JSON" }
func (s *LoadJSONSkill) Description() string { return "Load and validate a JSON file from the workspace." }
func (s *LoadJSONSkill) Usage() string       { return `LOAD_JSON "filename"` }

func (s *LoadJSONSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if err := need(args, 1, s.Usage()); err != nil {
		return "", err
	}
	data, name, err := s.ws.read(args[0])
	if err != nil {
		return "", err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("file %s does not contain valid JSON data", name)
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	return fmt.Sprintf("Loaded JSON data from %s\n%s", name, preview(string(pretty), 200)), nil
}
