package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"agentforge/internal/agent"
)

func testRecord(name string, category agent.Category) agent.Record {
	return agent.New(name, "handles "+name+" tasks", "", category, time.Now())
}

func openTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	reg, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open registry: %v", err)
	}
	return reg, path
}

func TestOpen_MissingFileYieldsEmptyCollection(t *testing.T) {
	reg, path := openTestRegistry(t)

	if got := len(reg.All()); got != 0 {
		t.Errorf("expected empty collection, got %d records", got)
	}
	// Open alone must not create the file; the first save does.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file before first save, stat err: %v", err)
	}
}

func TestAdd_PersistsImmediately(t *testing.T) {
	reg, path := openTestRegistry(t)

	rec := testRecord("CodingAgent", agent.CategoryCoding)
	if err := reg.Add(rec); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected registry file on disk: %v", err)
	}
	var doc struct {
		Agents []agent.Record `json:"agents"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("registry file not valid JSON: %v", err)
	}
	if len(doc.Agents) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(doc.Agents))
	}
	if doc.Agents[0].ID != rec.ID {
		t.Errorf("persisted id %s, want %s", doc.Agents[0].ID, rec.ID)
	}
	if doc.Agents[0].UseCount != 0 {
		t.Errorf("fresh record use_count = %d, want 0", doc.Agents[0].UseCount)
	}
}

func TestAdd_RejectsInvalidRecord(t *testing.T) {
	reg, _ := openTestRegistry(t)

	bad := testRecord("NamelessAgent", agent.CategoryOther)
	bad.Description = ""
	if err := reg.Add(bad); err == nil {
		t.Error("expected add of invalid record to fail")
	}
	if got := len(reg.All()); got != 0 {
		t.Errorf("invalid record must not be stored, have %d", got)
	}
}

func TestTouch_CountsSelectionsAndAdvancesLastUsed(t *testing.T) {
	reg, _ := openTestRegistry(t)

	rec := testRecord("MathAgent", agent.CategoryMath)
	if err := reg.Add(rec); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := reg.Touch(rec.ID); err != nil {
		t.Fatalf("first touch failed: %v", err)
	}
	first, err := reg.Get(rec.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if first.UseCount != 1 {
		t.Errorf("use_count after create-then-use = %d, want 1", first.UseCount)
	}
	if first.LastUsedAt.Before(first.CreatedAt) {
		t.Error("last_used_at must not precede created_at")
	}

	if err := reg.Touch(rec.ID); err != nil {
		t.Fatalf("second touch failed: %v", err)
	}
	second, err := reg.Get(rec.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if second.UseCount != 2 {
		t.Errorf("use_count after second selection = %d, want 2", second.UseCount)
	}
	if second.LastUsedAt.Before(first.LastUsedAt) {
		t.Error("last_used_at must be non-decreasing across selections")
	}
}

func TestTouch_UnknownIDReturnsNotFound(t *testing.T) {
	reg, _ := openTestRegistry(t)

	err := reg.Touch("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpen_CorruptedFileIsQuarantinedAndRepaired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	if err := os.WriteFile(path, []byte("{not valid json!!"), 0644); err != nil {
		t.Fatalf("failed to write corrupted file: %v", err)
	}

	reg, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("corrupted file must not fail open: %v", err)
	}
	if got := len(reg.All()); got != 0 {
		t.Errorf("expected empty collection after recovery, got %d", got)
	}

	// The bad content is quarantined, not discarded.
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("expected quarantine file: %v", err)
	}

	// The on-disk state is repaired and reloadable.
	again, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("repaired file failed to load: %v", err)
	}
	if got := len(again.All()); got != 0 {
		t.Errorf("expected empty repaired collection, got %d", got)
	}
}

func TestOpen_RecordMissingRequiredFieldIsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	content := `{"agents": [{"id": "x", "name": "BrokenAgent", "category": "coding",
		"created_at": "2026-01-02T15:04:05Z", "last_used_at": "2026-01-02T15:04:05Z", "use_count": 1}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	reg, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("invalid record must not fail open: %v", err)
	}
	if got := len(reg.All()); got != 0 {
		t.Errorf("expected recovery to an empty collection, got %d records", got)
	}
}

func TestOpen_UnknownExtraFieldsTolerated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	content := `{"agents": [{"id": "x", "name": "CodingAgent", "description": "handles coding",
		"category": "coding", "created_at": "2026-01-02T15:04:05Z",
		"last_used_at": "2026-01-02T15:04:05Z", "use_count": 3,
		"some_future_field": {"nested": true}}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	reg, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	records := reg.All()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].UseCount != 3 {
		t.Errorf("use_count = %d, want 3", records[0].UseCount)
	}
}

func TestSave_SurvivesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")

	reg, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	rec := testRecord("ResearchAgent", agent.CategoryResearch)
	if err := reg.Add(rec); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := reg.Touch(rec.ID); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	reloaded, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	records := reloaded.All()
	if len(records) != 1 {
		t.Fatalf("expected 1 record after reload, got %d", len(records))
	}
	if records[0].UseCount != 1 {
		t.Errorf("use_count lost on reload: %d", records[0].UseCount)
	}
}

func TestAll_ReturnsDefensiveCopy(t *testing.T) {
	reg, _ := openTestRegistry(t)
	if err := reg.Add(testRecord("WritingAgent", agent.CategoryWriting)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	records := reg.All()
	records[0].UseCount = 999

	if reg.All()[0].UseCount == 999 {
		t.Error("mutating the snapshot must not affect the registry")
	}
}

func TestStats_CountsByCategory(t *testing.T) {
	reg, _ := openTestRegistry(t)

	for _, c := range []agent.Category{
		agent.CategoryCoding, agent.CategoryCoding, agent.CategoryMath,
	} {
		if err := reg.Add(testRecord(agent.NameForCategory(c), c)); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	stats := reg.Stats()
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByCategory[agent.CategoryCoding] != 2 {
		t.Errorf("coding count = %d, want 2", stats.ByCategory[agent.CategoryCoding])
	}
	if stats.ByCategory[agent.CategoryMath] != 1 {
		t.Errorf("math count = %d, want 1", stats.ByCategory[agent.CategoryMath])
	}
}
