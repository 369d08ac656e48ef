package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNeedsList_Empty(t *testing.T) {
	configPath := writeTestConfig(t)

	// Migrate first so the list query has tables to hit.
	initCmd := newRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetArgs([]string{"db", "init", "--config", configPath})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("db init: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"needs", "list", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("needs list failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No needs found.") {
		t.Errorf("expected empty message, got: %s", buf.String())
	}
}

func TestNeedsList_AfterSeed(t *testing.T) {
	configPath := writeTestConfig(t)

	seedCmd := newRootCmd()
	seedCmd.SetOut(new(bytes.Buffer))
	seedCmd.SetArgs([]string{"db", "seed", "--config", configPath})
	if err := seedCmd.Execute(); err != nil {
		t.Fatalf("db seed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"needs", "list", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("needs list failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "TITLE") {
		t.Errorf("expected table header, got: %s", out)
	}
	if !strings.Contains(out, "Winter coats") {
		t.Errorf("expected seeded need in output, got: %s", out)
	}
	// Urgent seeded need should rank above the normal one.
	if strings.Index(out, "Winter coats") > strings.Index(out, "Canned soup") {
		t.Errorf("expected urgent need listed first, got: %s", out)
	}
}

func TestNeedsList_PriorityFilter(t *testing.T) {
	configPath := writeTestConfig(t)

	seedCmd := newRootCmd()
	seedCmd.SetOut(new(bytes.Buffer))
	seedCmd.SetArgs([]string{"db", "seed", "--config", configPath})
	if err := seedCmd.Execute(); err != nil {
		t.Fatalf("db seed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"needs", "list", "--config", configPath, "--priority", "urgent"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("needs list failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Winter coats") {
		t.Errorf("expected urgent need in output, got: %s", out)
	}
	if strings.Contains(out, "Canned soup") {
		t.Errorf("normal-priority need should be filtered out, got: %s", out)
	}
}
