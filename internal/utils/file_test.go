package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(small, []byte("jobTitle: Nurse\n"), 0600))
	big := filepath.Join(dir, "big.yaml")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("x", 2048)), 0600))

	tests := []struct {
		name    string
		path    string
		maxSize int64
		wantErr string
	}{
		{name: "ok", path: small, maxSize: 1024},
		{name: "no limit", path: big},
		{name: "empty name", path: "", wantErr: "cannot be empty"},
		{name: "missing", path: filepath.Join(dir, "nope.yaml"), wantErr: "does not exist"},
		{name: "directory", path: dir, wantErr: "is a directory"},
		{name: "too large", path: big, maxSize: 1024, wantErr: "too large: 2.0 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.path, tt.maxSize)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "nested", "out.md")
	require.NoError(t, ValidateOutputFile(target))

	_, err := os.Stat(filepath.Dir(target))
	assert.NoError(t, err, "directory should be created")
	assert.Error(t, ValidateOutputFile(filepath.Dir(target)), "directory target is rejected")
	assert.NoError(t, ValidateOutputFile(""), "stdout is valid")
}

func TestIsProfileFile(t *testing.T) {
	for name, want := range map[string]bool{
		"profile.yaml": true,
		"PROFILE.YML":  true,
		"p.json":       true,
		"p.txt":        false,
		"noext":        false,
	} {
		assert.Equal(t, want, IsProfileFile(name), "IsProfileFile(%q)", name)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for size, want := range tests {
		assert.Equal(t, want, FormatFileSize(size), "FormatFileSize(%d)", size)
	}
}
