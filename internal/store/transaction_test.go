package store

import (
	"testing"

	"github.com/lemaitremot/maitremot/internal/database"
	"github.com/lemaitremot/maitremot/internal/model"
)

func setupTransactionTestDB(t *testing.T) *TransactionStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTransactionStore(db)
}

func TestTransactionCreateAndGet(t *testing.T) {
	ts := setupTransactionTestDB(t)

	email := "prof@example.com"
	created, err := ts.Create(&model.PaymentTransaction{
		SessionID:     "cs_test_1",
		PackageID:     "monthly",
		Email:         &email,
		Amount:        9.99,
		Currency:      "eur",
		PaymentStatus: "pending",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.PaymentStatus != "pending" {
		t.Errorf("status = %q, want pending", created.PaymentStatus)
	}

	got, err := ts.GetBySessionID("cs_test_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Email == nil || *got.Email != email {
		t.Errorf("round-trip broken: %+v", got)
	}
}

func TestTransactionMarkPaidOnce(t *testing.T) {
	ts := setupTransactionTestDB(t)

	ts.Create(&model.PaymentTransaction{
		SessionID: "cs_test_1", PackageID: "monthly", Amount: 9.99,
		Currency: "eur", PaymentStatus: "pending",
	})

	flipped, err := ts.MarkPaid("cs_test_1")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !flipped {
		t.Fatal("first mark should flip")
	}

	// Webhook and status poll can race; only one observes the transition.
	flipped, err = ts.MarkPaid("cs_test_1")
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if flipped {
		t.Error("second mark must not flip again")
	}

	got, _ := ts.GetBySessionID("cs_test_1")
	if got.PaymentStatus != "paid" {
		t.Errorf("status = %q, want paid", got.PaymentStatus)
	}
}

func TestTransactionGetUnknown(t *testing.T) {
	ts := setupTransactionTestDB(t)

	got, err := ts.GetBySessionID("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown session")
	}
}
