package main

import (
	"os"
	"testing"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/exitcodes"
)

func TestHandleInitWritesConfig(t *testing.T) {
	d := newTestDeps(t, newFakeCatalog())
	mcDir := t.TempDir()

	if err := handleInit(d, "1.21.1", "fabric", mcDir, false); err != nil {
		t.Fatalf("handleInit: %v", err)
	}

	cfg, err := config.Load(d.ConfigPath)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.MinecraftVersion != "1.21.1" || cfg.Loader != config.LoaderFabric {
		t.Errorf("config = %s/%s, want 1.21.1/fabric", cfg.MinecraftVersion, cfg.Loader)
	}
	if cfg.MinecraftDir != mcDir {
		t.Errorf("minecraft dir = %q, want %q", cfg.MinecraftDir, mcDir)
	}
	if _, err := os.Stat(d.ProjectsPath); err != nil {
		t.Errorf("projects.yaml not seeded: %v", err)
	}
}

func TestHandleInitRefusesOverwrite(t *testing.T) {
	d := newTestDeps(t, newFakeCatalog())
	mcDir := t.TempDir()

	if err := handleInit(d, "1.21.1", "fabric", mcDir, false); err != nil {
		t.Fatalf("first init: %v", err)
	}
	err := handleInit(d, "1.20.4", "forge", mcDir, false)
	if err == nil {
		t.Fatal("second init without --force succeeded")
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.PreconditionFailed {
		t.Errorf("exit code = %d, want %d", code, exitcodes.PreconditionFailed)
	}

	// --force overwrites.
	if err := handleInit(d, "1.20.4", "forge", mcDir, true); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	cfg, err := config.Load(d.ConfigPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MinecraftVersion != "1.20.4" {
		t.Errorf("version = %q, want 1.20.4 after --force", cfg.MinecraftVersion)
	}
}

func TestHandleInitRejectsBadLoader(t *testing.T) {
	d := newTestDeps(t, newFakeCatalog())
	err := handleInit(d, "1.21.1", "papermc", t.TempDir(), false)
	if err == nil {
		t.Fatal("init with unknown loader succeeded")
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.InvalidArgs {
		t.Errorf("exit code = %d, want %d", code, exitcodes.InvalidArgs)
	}
}
