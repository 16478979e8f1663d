package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "trihash")
	var s sample
	if err := Load(writeFile(t, "name: ${SAMPLE_NAME}\nport: 8080\n"), &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "trihash" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	var s sample
	err := Load(writeFile(t, "name: x\nport: 0\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	def := writeFile(t, "name: default\nport: 1\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}

	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s); err == nil {
		t.Error("expected error without default file")
	}
}

func TestDecode_Strict(t *testing.T) {
	var s sample
	if err := Decode([]byte("name: x\nport: 2\n"), &s); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if err := Decode([]byte("name: x\nport: 2\nextra: true\n"), &s); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := Decode([]byte(""), &s); err == nil || !strings.Contains(err.Error(), "empty document") {
		t.Errorf("expected empty document error, got %v", err)
	}

	t.Setenv("SAMPLE_NAME", "expanded")
	var raw sample
	if err := Decode([]byte("name: ${SAMPLE_NAME}\nport: 3\n"), &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Name != "${SAMPLE_NAME}" {
		t.Errorf("Decode expanded env: %q", raw.Name)
	}
}
