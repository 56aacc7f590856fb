package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const plannerPromptFile = "planner.md"

// PromptManager loads prompt overrides from a directory of markdown files.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// GetGuidancePrompt joins every markdown file except planner.md. Known files
// come first in a fixed order, the rest alphabetically.
func (pm *PromptManager) GetGuidancePrompt() (string, error) {
	files, err := os.ReadDir(pm.Directory)
	if err != nil {
		return "", fmt.Errorf("failed to read prompts directory: %v", err)
	}

	order := map[string]int{
		"identity.md":   1,
		"guidelines.md": 2,
		"sites.md":      3,
		"user.md":       4,
	}

	sort.Slice(files, func(i, j int) bool {
		oi, okI := order[files[i].Name()]
		oj, okJ := order[files[j].Name()]
		if okI && okJ {
			return oi < oj
		}
		if okI {
			return true
		}
		if okJ {
			return false
		}
		return files[i].Name() < files[j].Name()
	})

	var contents []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".md") && f.Name() != plannerPromptFile {
			path := filepath.Join(pm.Directory, f.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				log.Printf("Warning: Failed to read prompt file %s: %v", path, err)
				continue
			}
			contents = append(contents, strings.TrimSpace(string(data)))
		}
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}

// GetPlannerPrompt returns the planner.md override. A missing file yields
// fs.ErrNotExist so callers can fall back to the built-in prompt.
func (pm *PromptManager) GetPlannerPrompt() (string, error) {
	if pm == nil || pm.Directory == "" {
		return "", fs.ErrNotExist
	}
	path := filepath.Join(pm.Directory, plannerPromptFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		return "", fmt.Errorf("failed to read planner prompt: %v", err)
	}
	return string(data), nil
}
