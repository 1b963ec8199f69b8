package store

import (
	"sync"
	"testing"

	"github.com/lemaitremot/maitremot/internal/database"
)

func setupExportTestDB(t *testing.T) *ExportStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewExportStore(db)
}

func TestGuestQuotaFresh(t *testing.T) {
	es := setupExportTestDB(t)

	q, err := es.GuestQuota("g1")
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if q.ExportsUsed != 0 || q.ExportsRemaining != 3 || q.QuotaExceeded {
		t.Errorf("fresh quota = %+v, want 0 used, 3 remaining, not exceeded", q)
	}
}

func TestGuestQuotaProgression(t *testing.T) {
	es := setupExportTestDB(t)

	steps := []struct {
		remaining int
		exceeded  bool
	}{
		{2, false},
		{1, false},
		{0, true},
	}
	for i, want := range steps {
		ok, err := es.RecordGuestExport("g1", "doc-1", "sujet", "standard")
		if err != nil {
			t.Fatalf("export %d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("export %d should be within quota", i+1)
		}
		q, err := es.GuestQuota("g1")
		if err != nil {
			t.Fatalf("quota after export %d: %v", i+1, err)
		}
		if q.ExportsRemaining != want.remaining || q.QuotaExceeded != want.exceeded {
			t.Errorf("after export %d: remaining=%d exceeded=%v, want remaining=%d exceeded=%v",
				i+1, q.ExportsRemaining, q.QuotaExceeded, want.remaining, want.exceeded)
		}
	}

	// Fourth export must be refused by the conditional insert.
	ok, err := es.RecordGuestExport("g1", "doc-1", "sujet", "standard")
	if err != nil {
		t.Fatalf("fourth export: %v", err)
	}
	if ok {
		t.Error("fourth export must be rejected")
	}
}

func TestGuestQuotaIsolatedPerGuest(t *testing.T) {
	es := setupExportTestDB(t)

	for i := 0; i < 3; i++ {
		if ok, _ := es.RecordGuestExport("g1", "doc-1", "sujet", "standard"); !ok {
			t.Fatalf("g1 export %d rejected", i+1)
		}
	}

	q, err := es.GuestQuota("g2")
	if err != nil {
		t.Fatalf("g2 quota: %v", err)
	}
	if q.ExportsRemaining != 3 {
		t.Errorf("g2 remaining = %d, want 3", q.ExportsRemaining)
	}
}

func TestGuestQuotaConcurrentExports(t *testing.T) {
	es := setupExportTestDB(t)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := es.RecordGuestExport("g1", "doc-1", "sujet", "standard")
			if err != nil {
				t.Errorf("concurrent export: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != MaxGuestExports {
		t.Errorf("concurrent exports succeeded = %d, want exactly %d", succeeded, MaxGuestExports)
	}

	q, _ := es.GuestQuota("g1")
	if q.ExportsUsed != MaxGuestExports {
		t.Errorf("exports used = %d, want %d", q.ExportsUsed, MaxGuestExports)
	}
}

func TestProExportUnlimitedAudit(t *testing.T) {
	es := setupExportTestDB(t)

	for i := 0; i < 5; i++ {
		if err := es.RecordProExport("prof@example.com", "doc-1", "corrige", "moderne"); err != nil {
			t.Fatalf("pro export %d: %v", i+1, err)
		}
	}

	count, err := es.CountByEmail("prof@example.com")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("audit rows = %d, want 5", count)
	}
}

func TestTemplateUsageByEmail(t *testing.T) {
	es := setupExportTestDB(t)

	es.RecordProExport("prof@example.com", "doc-1", "sujet", "moderne")
	es.RecordProExport("prof@example.com", "doc-1", "corrige", "moderne")
	es.RecordProExport("prof@example.com", "doc-2", "sujet", "classique")

	usage, err := es.TemplateUsageByEmail("prof@example.com")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage["moderne"] != 2 || usage["classique"] != 1 {
		t.Errorf("usage = %v, want moderne:2 classique:1", usage)
	}
}
