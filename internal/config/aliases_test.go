package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadAliases_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() returned error for missing file: %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadAliases() returned nil config")
	}
	if len(cfg.Aliases) != 0 {
		t.Errorf("expected empty Aliases map, got %v", cfg.Aliases)
	}
}

func TestLoadAliases_CommentsAndBlankLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	content := `# this is a comment
# another comment


jp=jetpack
`
	if err := os.WriteFile(filepath.Join(dir, "aliases"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() error: %v", err)
	}
	if len(cfg.Aliases) != 1 {
		t.Errorf("expected 1 alias, got %d: %v", len(cfg.Aliases), cfg.Aliases)
	}
	if got := cfg.Aliases["jp"]; got != "jetpack" {
		t.Errorf("Aliases[\"jp\"] = %q, want %q", got, "jetpack")
	}
}

func TestLoadAliases_InvalidLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	content := `noequalssign
=missingalias
woo=woocommerce
 =
cf7 = contact-form-7
`
	if err := os.WriteFile(filepath.Join(dir, "aliases"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() error: %v", err)
	}

	want := map[string]string{"woo": "woocommerce", "cf7": "contact-form-7"}
	if !reflect.DeepEqual(cfg.Aliases, want) {
		t.Errorf("Aliases = %v, want %v", cfg.Aliases, want)
	}
}

func TestAliasConfig_Resolve(t *testing.T) {
	cfg := &AliasConfig{Aliases: map[string]string{"jp": "jetpack"}}

	got := cfg.Resolve([]string{"jp", "akismet"})
	want := []string{"jetpack", "akismet"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}

	var nilCfg *AliasConfig
	if got := nilCfg.Resolve([]string{"jp"}); got[0] != "jp" {
		t.Errorf("nil Resolve() = %v, want [jp]", got)
	}
}

func TestDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "wpgh") {
		t.Errorf("Dir() = %q, want %q", dir, "/tmp/xdg/wpgh")
	}
}
