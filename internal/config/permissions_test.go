package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckPermissions(t *testing.T) {
	tests := []struct {
		name    string
		perm    os.FileMode
		wantErr bool
	}{
		{"owner only", 0600, false},
		{"group readable", 0640, false},
		{"world readable", 0644, true},
		{"world writable", 0602, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.toml")
			if err := os.WriteFile(path, []byte("name = \"x\"\n"), 0600); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}
			// Bypass umask
			if err := os.Chmod(path, tt.perm); err != nil {
				t.Fatalf("Failed to chmod: %v", err)
			}

			err := CheckPermissions(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPermissions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckPermissions_Missing(t *testing.T) {
	if err := CheckPermissions(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
