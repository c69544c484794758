package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func readAuditEntries(t *testing.T, path string) []AuditEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid audit line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	a, err := NewAuditLogger(dir)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	a.Log(AuditEntry{Timestamp: time.Now(), Tool: "episim_simulate", Status: "success"})
	a.Log(AuditEntry{Timestamp: time.Now(), Tool: "episim_backup", Status: "error", Error: "boom"})
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readAuditEntries(t, filepath.Join(dir, AuditFile))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Tool != "episim_backup" || entries[1].Error != "boom" {
		t.Errorf("second entry = %+v", entries[1])
	}

	info, err := os.Stat(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("audit log mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var a *AuditLogger
	a.Log(AuditEntry{Tool: "x"})
	if err := a.Close(); err != nil {
		t.Errorf("Close on nil = %v", err)
	}
	if a.Path() != "" {
		t.Errorf("Path on nil = %q", a.Path())
	}
}

func TestAuditLogger_Concurrent(t *testing.T) {
	dir := t.TempDir()
	a, err := NewAuditLogger(dir)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Log(AuditEntry{Timestamp: time.Now(), Tool: "episim_list_networks", Status: "success"})
		}()
	}
	wg.Wait()
	a.Close()

	if got := len(readAuditEntries(t, filepath.Join(dir, AuditFile))); got != 50 {
		t.Errorf("got %d entries, want 50", got)
	}
}

func TestSanitizeToolParams(t *testing.T) {
	steps := 5
	got := sanitizeToolParams(map[string]any{
		"network":   "city",
		"steps":     &steps,
		"beta":      (*float64)(nil),
		"path":      "/home/someone/secret.epz",
		"initial_n": 0,
		"unknown":   "dropped",
	})
	want := map[string]string{
		"network":      "city",
		"steps":        "5",
		"path":         "(set)",
		"_param_count": "4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sanitizeToolParams mismatch (-want +got):\n%s", diff)
	}

	if sanitizeToolParams(nil) != nil {
		t.Error("sanitizeToolParams(nil) should be nil")
	}
}

func TestHandlers_WriteAuditEntries(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := server.handleListNetworks(ctx, &sdk.CallToolRequest{}, ListNetworksInput{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	_, _, err := server.handleNetwork(ctx, &sdk.CallToolRequest{}, NetworkInput{Action: "bogus"})
	if err == nil {
		t.Fatal("expected error for bogus action")
	}
	path := server.audit.Path()
	server.audit.Close()

	entries := readAuditEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Tool != "episim_list_networks" || entries[0].Status != "success" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Tool != "episim_network" || entries[1].Status != "error" || entries[1].Params["action"] != "bogus" {
		t.Errorf("second entry = %+v", entries[1])
	}
}
