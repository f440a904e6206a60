package ai

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"
	"text/template"

	"skillpick/internal/config"
	"skillpick/internal/errors"
)

// PromptStore holds the compiled prompt templates for every operation.
// File overrides replace the built-in defaults and can be reloaded at runtime.
type PromptStore struct {
	mu        sync.RWMutex
	files     map[string]string // "<op>.system|user" -> path
	templates map[string]*template.Template
	logger    *errors.Logger
}

// NewPromptStore compiles the defaults and applies the given file overrides.
// files is keyed like config.Config.PromptFilePaths.
func NewPromptStore(files map[string]string, logger *errors.Logger) (*PromptStore, error) {
	s := &PromptStore{
		files:  make(map[string]string, len(files)),
		logger: logger,
	}
	for key, path := range files {
		s.files[key] = path
	}

	templates, err := s.compile()
	if err != nil {
		return nil, err
	}
	s.templates = templates
	return s, nil
}

// NewDefaultPromptStore returns a store with only the built-in prompts
func NewDefaultPromptStore() *PromptStore {
	s, err := NewPromptStore(nil, nil)
	if err != nil {
		panic(fmt.Sprintf("built-in prompts do not compile: %v", err))
	}
	return s
}

func (s *PromptStore) compile() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(config.Operations)*2)

	for _, op := range config.Operations {
		defaults := DefaultPrompts[op]
		for kind, text := range map[string]string{"system": defaults.System, "user": defaults.User} {
			key := op + "." + kind
			if path, ok := s.files[key]; ok {
				loaded, err := config.LoadPromptFile(path)
				if err != nil {
					return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
						fmt.Sprintf("Failed to load %s prompt", key), err)
				}
				text = loaded
			}

			tmpl, err := template.New(key).Option("missingkey=zero").Parse(text)
			if err != nil {
				return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
					fmt.Sprintf("Invalid %s prompt template", key), err)
			}
			templates[key] = tmpl
		}
	}
	return templates, nil
}

// Reload re-reads every override file. On failure the previous templates stay active.
func (s *PromptStore) Reload() error {
	templates, err := s.compile()
	if err != nil {
		s.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
		return err
	}

	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()

	s.logger.Info("Prompts reloaded", "overrides", len(s.files))
	return nil
}

// Render executes the system and user templates of an operation
func (s *PromptStore) Render(operation string, data any) (string, string, error) {
	s.mu.RLock()
	system, okSystem := s.templates[operation+".system"]
	user, okUser := s.templates[operation+".user"]
	s.mu.RUnlock()

	if !okSystem || !okUser {
		return "", "", errors.NewInternalError(errors.ErrCodeInternalServerFailure,
			fmt.Sprintf("No prompts registered for operation %s", operation), nil)
	}

	systemText, err := execute(system, data)
	if err != nil {
		return "", "", err
	}
	userText, err := execute(user, data)
	if err != nil {
		return "", "", err
	}
	return systemText, userText, nil
}

// Spec renders an operation's prompts into a PromptSpec
func (s *PromptStore) Spec(operation string, data any) (PromptSpec, error) {
	system, user, err := s.Render(operation, data)
	if err != nil {
		return PromptSpec{}, err
	}
	return PromptSpec{
		Operation:    operation,
		SystemPrompt: system,
		UserPrompt:   user,
		Schema:       SchemaFor(operation),
	}, nil
}

// Files returns the override files, sorted
func (s *PromptStore) Files() []string {
	files := make([]string, 0, len(s.files))
	for _, path := range s.files {
		if !slices.Contains(files, path) {
			files = append(files, path)
		}
	}
	slices.Sort(files)
	return files
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternalServerFailure,
			fmt.Sprintf("Failed to render %s prompt", tmpl.Name()), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
