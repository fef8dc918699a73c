package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"pair", "scan", "qr", "bootstrap", "doctor", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
}

func TestQRCommandPrintsPayload(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"qr", "--host", "192.168.1.20", "--token", "secret"})
	if err := root.Execute(); err != nil {
		t.Fatalf("qr command: %v", err)
	}
	if !strings.Contains(out.String(), "roomlink://pair?") {
		t.Fatalf("expected pairing payload in output, got %q", out.String())
	}
	if !strings.Contains(out.String(), "token=secret") {
		t.Fatalf("expected token in payload, got %q", out.String())
	}
}

func TestQRCommandRequiresInput(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"qr"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for empty qr inputs")
	}
}

func TestPairCommandRequiresInput(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"pair"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error when no pairing inputs are given")
	}
}

func TestVersionCommandPrintsModule(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version command: %v", err)
	}
	if !strings.Contains(out.String(), "pkt.systems/roomlink") {
		t.Fatalf("expected module path in output, got %q", out.String())
	}
}
