package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSubstituteEnvVars(t *testing.T) {
	os.Setenv("TEST_VAR", "test_value")
	defer os.Unsetenv("TEST_VAR")

	input := []byte("value: ${TEST_VAR}")
	expected := []byte("value: test_value")

	result := substituteEnvVars(input)

	if string(result) != string(expected) {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestSubstituteEnvVarsMultiple(t *testing.T) {
	os.Setenv("VAR1", "value1")
	os.Setenv("VAR2", "value2")
	defer os.Unsetenv("VAR1")
	defer os.Unsetenv("VAR2")

	input := []byte("first: ${VAR1}\nsecond: ${VAR2}")
	expected := []byte("first: value1\nsecond: value2")

	result := substituteEnvVars(input)

	if string(result) != string(expected) {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestSubstituteEnvVarsNotSet(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR")

	input := []byte("value: ${NONEXISTENT_VAR}")
	expected := []byte("value: ${NONEXISTENT_VAR}") // unchanged

	result := substituteEnvVars(input)

	if string(result) != string(expected) {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestSubstituteEnvVarsNoVars(t *testing.T) {
	input := []byte("value: plain_text")
	expected := []byte("value: plain_text")

	result := substituteEnvVars(input)

	if string(result) != string(expected) {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestSubstituteEnvVarsFallback(t *testing.T) {
	os.Unsetenv("VL_MISSING")
	os.Setenv("VL_PRESENT", "real")
	defer os.Unsetenv("VL_PRESENT")

	input := []byte("a: ${VL_MISSING:-fallback}\nb: ${VL_PRESENT:-ignored}\nc: ${VL_MISSING:-}")
	expected := []byte("a: fallback\nb: real\nc: ")

	result := substituteEnvVars(input)

	if string(result) != string(expected) {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	os.Setenv("TEST_MANIFEST", "/data/scans.csv")
	os.Setenv("TEST_STATUS_PASSWORD", "s3cret")
	defer os.Unsetenv("TEST_MANIFEST")
	defer os.Unsetenv("TEST_STATUS_PASSWORD")

	content := `
experiment:
  manifest: "${TEST_MANIFEST}"

status:
  auth:
    enabled: true
    user: "admin"
    password: "${TEST_STATUS_PASSWORD}"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Experiment.Manifest != "/data/scans.csv" {
		t.Errorf("expected manifest /data/scans.csv, got %s", cfg.Experiment.Manifest)
	}
	if cfg.Status.Auth.Password != "s3cret" {
		t.Errorf("expected substituted password, got %q", cfg.Status.Auth.Password)
	}
}
