package main

import (
	"strings"
	"testing"
)

// TestServeRejectsInvalidConfig verifies that bad flags stop the command
// before anything is opened.
func TestServeRejectsInvalidConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"serve", "--max-content", "0"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for max-content 0")
	}
}

func TestServeRejectsArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"serve", "extra"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for positional arguments")
	}
}

func TestServeDeclaresFlags(t *testing.T) {
	root := newRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatal(err)
	}
	if serve.Flags().Lookup("log-level") == nil || serve.Flags().Lookup("data-dir") == nil {
		t.Fatal("serve should declare the config flags")
	}
}

// TestServeWarnsAboutFallbackAnalyzer verifies that operators are told every
// verdict comes from the fallback analyzer.
func TestServeWarnsAboutFallbackAnalyzer(t *testing.T) {
	serve, _, err := newRootCmd().Find([]string{"serve"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(serve.Long, "Unsure") {
		t.Fatalf("serve help should mention the fallback verdict, got %q", serve.Long)
	}
	if panel := storagePanel(startupInfo{}); !strings.Contains(panel, "fallback") {
		t.Fatalf("startup panel should name the fallback analyzer, got %q", panel)
	}
}
