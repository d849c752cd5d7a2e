package common

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"survivalist/internal/errors"
	"survivalist/internal/types"
	"survivalist/internal/utils"
)

// FileProcessor handles profile and report files
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a new file processor. maxSize bounds input files, zero means unlimited.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWriteFailed,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ReadProfile loads a job profile from a YAML or JSON file.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func (fp *FileProcessor) ReadProfile(filename string) (types.AnalysisRequest, error) {
	var req types.AnalysisRequest

	if err := utils.ValidateInputFile(filename, fp.maxSize); err != nil {
		return req, errors.NewValidationError(errors.ErrCodeInvalidProfile,
			fmt.Sprintf("Invalid profile file %s", filename), err)
	}
	if !utils.IsProfileFile(filename) {
		fp.logger.Warn("Profile file has an unexpected extension, parsing as YAML",
			"filename", filename, "expected", utils.ProfileExtensions)
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return req, err
	}

	// YAML is a superset of JSON, so one decoder covers both
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&req); err != nil {
		if err == io.EOF {
			return req, errors.NewValidationError(errors.ErrCodeInvalidProfile,
				fmt.Sprintf("Profile file is empty: %s", filename), nil)
		}
		return req, errors.NewValidationError(errors.ErrCodeInvalidProfile,
			fmt.Sprintf("Cannot parse profile file: %s", filename), err)
	}

	fp.logger.Debug("Loaded profile", "filename", filename, "job_title", req.JobTitle)
	return req, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
