package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/testutil"
)

func TestNewApplication_Memory(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewApplication(context.Background(), cfg, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	if a.Analyzer == nil {
		t.Fatal("analyzer not wired")
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewApplication_SQLiteResumes(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Store = config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "run.db")}
	ctx := context.Background()
	page := testutil.BuildHAR(false, testutil.HTML("https://example.com/", `<style>a{}</style>`))

	first, err := NewApplication(ctx, cfg, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	if _, err := first.Analyzer.AnalyzePage(ctx, "https://example.com/", "site", page); err != nil {
		t.Fatalf("AnalyzePage: %v", err)
	}
	if err := first.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	second, err := NewApplication(ctx, cfg, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Shutdown(ctx)
	state, ok := second.Analyzer.Group("site")
	if !ok || len(state.KnowledgeData) != 1 {
		t.Fatalf("resumed state = %+v, %v", state, ok)
	}
}

func TestNewApplication_Errors(t *testing.T) {
	if _, err := NewApplication(context.Background(), nil, nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
	cfg, _ := config.Default()
	cfg.Store.Driver = "bogus"
	if _, err := NewApplication(context.Background(), cfg, nil, nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestShutdown_Nil(t *testing.T) {
	var a *Application
	if err := a.Shutdown(context.Background()); err == nil {
		t.Error("expected error on nil application")
	}
}
