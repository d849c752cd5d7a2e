package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

// maxPromptFileSize caps prompt files; a prompt is instructions, not a corpus
const maxPromptFileSize = 64 * 1024

// LoadedPrompts holds prompt content loaded from files
type LoadedPrompts struct {
	SystemPrompt string
	UserPrompt   string
}

var (
	loadedPromptsMu sync.RWMutex
	loadedPrompts   LoadedPrompts
)

// GetLoadedPrompts returns a copy of the prompts currently loaded from files
func GetLoadedPrompts() LoadedPrompts {
	loadedPromptsMu.RLock()
	defer loadedPromptsMu.RUnlock()
	return loadedPrompts
}

func setLoadedPrompts(prompts LoadedPrompts) {
	loadedPromptsMu.Lock()
	defer loadedPromptsMu.Unlock()
	loadedPrompts = prompts
}

// ResolvedPrompts returns the effective custom prompts: file content wins over inline config.
// Empty fields mean the built-in prompt applies.
func (c *Config) ResolvedPrompts() LoadedPrompts {
	fromFiles := GetLoadedPrompts()
	resolved := LoadedPrompts{
		SystemPrompt: c.AI.CustomPrompts.SystemPrompt,
		UserPrompt:   c.AI.CustomPrompts.UserPrompt,
	}
	if fromFiles.SystemPrompt != "" {
		resolved.SystemPrompt = fromFiles.SystemPrompt
	}
	if fromFiles.UserPrompt != "" {
		resolved.UserPrompt = fromFiles.UserPrompt
	}
	return resolved
}

// PromptFiles lists the configured prompt files
func (c *Config) PromptFiles() []string {
	var files []string
	for _, f := range []string{c.AI.CustomPrompts.SystemPromptFile, c.AI.CustomPrompts.UserPromptFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	if len(c.PromptFiles()) == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using built-in defaults")
		setLoadedPrompts(LoadedPrompts{})
		return nil
	}

	prompts, err := c.readPromptFiles()
	if err != nil {
		return err
	}

	setLoadedPrompts(prompts)
	return nil
}

// ReloadPrompts re-reads the prompt files. On error the previously loaded prompts stay active.
func (c *Config) ReloadPrompts() error {
	prompts, err := c.readPromptFiles()
	if err != nil {
		return err
	}
	setLoadedPrompts(prompts)
	return nil
}

func (c *Config) readPromptFiles() (LoadedPrompts, error) {
	var prompts LoadedPrompts

	if path := c.AI.CustomPrompts.SystemPromptFile; path != "" {
		content, err := loadPromptFromFile(path, "system")
		if err != nil {
			return LoadedPrompts{}, err
		}
		prompts.SystemPrompt = content
	}

	if path := c.AI.CustomPrompts.UserPromptFile; path != "" {
		content, err := loadPromptFromFile(path, "user")
		if err != nil {
			return LoadedPrompts{}, err
		}
		if err := ValidateUserPromptTemplate(content); err != nil {
			return LoadedPrompts{}, fmt.Errorf("user prompt file '%s': %w", path, err)
		}
		prompts.UserPrompt = content
	}

	return prompts, nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", promptType, filePath, err)
	}

	info, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%s prompt file not found: %s", promptType, absPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s prompt file '%s': %w", promptType, absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s prompt path '%s' is a directory", promptType, absPath)
	}
	if info.Size() > maxPromptFileSize {
		return "", fmt.Errorf("%s prompt file '%s' is too large (%d bytes, max %d)", promptType, absPath, info.Size(), maxPromptFileSize)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", promptType, absPath, err)
	}

	if !utf8.Valid(content) {
		return "", fmt.Errorf("%s prompt file '%s' is not valid UTF-8 text", promptType, absPath)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", promptType, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s prompt from file: %s (%d characters)",
		promptType, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// ValidateUserPromptTemplate checks that a user prompt template has exactly the four
// %s verbs filled with job title, industry, location and experience.
func ValidateUserPromptTemplate(template string) error {
	verbs := strings.Count(template, "%s") - strings.Count(template, "%%s")
	if verbs != 4 {
		return fmt.Errorf("user prompt template must contain exactly 4 %%s placeholders (job title, industry, location, experience), found %d", verbs)
	}
	return nil
}
