package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestBatchCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"batch", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("batch --help failed: %v", err)
	}

	out := buf.String()
	subs := []string{
		"register", "lot", "process", "formulate", "recall",
		"transfer", "list", "show", "history", "lineage",
	}
	for _, sub := range subs {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestNewBatchLotCmd(t *testing.T) {
	cmd := newBatchLotCmd()
	if cmd.Use != "lot <lot-id>" {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"config", "from", "owner", "product", "quantity", "unit"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
	if flag := cmd.Flags().Lookup("unit"); flag.DefValue != "kg" {
		t.Errorf("--unit default = %q, want %q", flag.DefValue, "kg")
	}
}

func TestNewBatchRecallCmd(t *testing.T) {
	cmd := newBatchRecallCmd()
	if cmd.Use != "recall <batch-id>" {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"config", "reason", "actor", "single-hop"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
}

func TestBatchLotCmd_RequiredFlags(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"batch", "lot", "LOT1"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when required flags are missing")
	}
}

func TestBatchRecallCmd_RequiredFlags(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"batch", "recall", "LOT1"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when --reason is missing")
	}
}

func TestBatchShowCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"batch", "show", "F001", "--config", "/nonexistent/setu.yaml"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}
