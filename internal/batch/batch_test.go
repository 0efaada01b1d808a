package batch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ayusetu/setu/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Batch{}, &models.BatchHistory{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, batchID, batchType, status, ownerID string) {
	t.Helper()
	b := models.Batch{
		ID:      uuid.New().String(),
		BatchID: batchID,
		Type:    batchType,
		Status:  status,
		OwnerID: ownerID,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("seed %s: %v", batchID, err)
	}
}

func TestRegisterRawMaterial(t *testing.T) {
	db := testDB(t)

	got, err := RegisterRawMaterial(db, RegisterOpts{
		BatchID:        "F001",
		OwnerID:        "farmer-1",
		ProductName:    "Tulsi Leaves",
		Quantity:       25,
		Unit:           "kg",
		SourceLocation: "Field 7",
		FarmerID:       "farmer-1",
		FarmerName:     "R. Sharma",
		FarmerPhone:    "9999999999",
		FarmerLocation: "Wayanad",
		Metadata:       map[string]interface{}{"harvest_season": "monsoon"},
	})
	if err != nil {
		t.Fatalf("RegisterRawMaterial: %v", err)
	}
	if got.Type != models.TypeRawMaterial {
		t.Errorf("type = %q, want raw_material", got.Type)
	}
	if got.Status != models.StatusCreated {
		t.Errorf("status = %q, want created", got.Status)
	}
	if got.FarmerName != "R. Sharma" {
		t.Errorf("farmer name = %q", got.FarmerName)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(got.Metadata), &meta); err != nil {
		t.Fatalf("metadata not JSON: %v", err)
	}
	if meta["harvest_season"] != "monsoon" {
		t.Errorf("metadata = %v", meta)
	}

	entries, err := History(db, "F001")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].EventType != models.EventBatchCreated {
		t.Errorf("history = %+v", entries)
	}
}

func TestRegisterRawMaterial_Duplicate(t *testing.T) {
	db := testDB(t)
	opts := RegisterOpts{BatchID: "F001", OwnerID: "farmer-1", ProductName: "Tulsi"}
	if _, err := RegisterRawMaterial(db, opts); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := RegisterRawMaterial(db, opts)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := Get(testDB(t), "GHOST")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestList_RoleVisibility(t *testing.T) {
	db := testDB(t)
	seed(t, db, "F1", models.TypeRawMaterial, models.StatusCreated, "farmer-1")
	seed(t, db, "L1", models.TypeLot, models.StatusInTransit, "agg-1")
	seed(t, db, "P1", models.TypeProcessed, models.StatusProcessed, "proc-1")
	seed(t, db, "FP1", models.TypeFinalProduct, models.StatusFinalized, "mfg-1")

	got := func(f ListFilters) map[string]bool {
		batches, err := List(db, f)
		if err != nil {
			t.Fatalf("List(%+v): %v", f, err)
		}
		out := map[string]bool{}
		for _, b := range batches {
			out[b.BatchID] = true
		}
		return out
	}

	agg := got(ListFilters{Role: "aggregator"})
	if !agg["F1"] || !agg["L1"] || agg["P1"] || agg["FP1"] {
		t.Errorf("aggregator sees %v", agg)
	}

	// Processor sees in-transit/received batches plus anything they own.
	proc := got(ListFilters{Role: "processor", UserID: "proc-1"})
	if !proc["L1"] || !proc["P1"] || proc["F1"] || proc["FP1"] {
		t.Errorf("processor sees %v", proc)
	}

	mfg := got(ListFilters{Role: "manufacturer", UserID: "mfg-1"})
	if !mfg["P1"] || !mfg["FP1"] || mfg["F1"] || mfg["L1"] {
		t.Errorf("manufacturer sees %v", mfg)
	}

	dist := got(ListFilters{Role: "distributor", UserID: "dist-1"})
	if !dist["FP1"] || dist["F1"] || dist["L1"] || dist["P1"] {
		t.Errorf("distributor sees %v", dist)
	}

	all := got(ListFilters{})
	if len(all) != 4 {
		t.Errorf("unfiltered list sees %v", all)
	}

	byStatus := got(ListFilters{Status: models.StatusFinalized})
	if len(byStatus) != 1 || !byStatus["FP1"] {
		t.Errorf("status filter sees %v", byStatus)
	}
}

func TestTransfer(t *testing.T) {
	db := testDB(t)
	seed(t, db, "F1", models.TypeRawMaterial, models.StatusCreated, "farmer-1")

	err := Transfer(db, "F1", "agg-1", "Aggregation Center", "farmer-1",
		map[string]interface{}{"vehicle": "KL-12-3456"})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	b, err := Get(db, "F1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.OwnerID != "agg-1" {
		t.Errorf("owner = %q, want agg-1", b.OwnerID)
	}
	if b.Status != models.StatusInTransit {
		t.Errorf("status = %q, want in_transit", b.Status)
	}
	if b.DestinationLocation != "Aggregation Center" {
		t.Errorf("destination = %q", b.DestinationLocation)
	}

	entries, err := History(db, "F1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].EventType != models.EventCustodyTransfer {
		t.Errorf("history = %+v", entries)
	}
}

func TestTransfer_NoDetailsNoHistory(t *testing.T) {
	db := testDB(t)
	seed(t, db, "F1", models.TypeRawMaterial, models.StatusCreated, "farmer-1")

	if err := Transfer(db, "F1", "agg-1", "", "farmer-1", nil); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	entries, err := History(db, "F1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("history = %+v, want none", entries)
	}
}

func TestTransfer_NotFound(t *testing.T) {
	err := Transfer(testDB(t), "GHOST", "agg-1", "", "", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	db := testDB(t)
	seed(t, db, "L1", models.TypeLot, models.StatusInTransit, "proc-1")

	err := UpdateStatus(db, "L1", models.StatusReceived, "proc-1",
		map[string]interface{}{"received_at": "Processing Unit"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	b, _ := Get(db, "L1")
	if b.Status != models.StatusReceived {
		t.Errorf("status = %q, want received", b.Status)
	}
	entries, _ := History(db, "L1")
	if len(entries) != 1 {
		t.Errorf("history entries = %d, want 1", len(entries))
	}
}

func TestHistory_Order(t *testing.T) {
	db := testDB(t)
	seed(t, db, "F1", models.TypeRawMaterial, models.StatusCreated, "farmer-1")

	for _, step := range []string{"first", "second", "third"} {
		err := UpdateStatus(db, "F1", models.StatusReceived, "actor",
			map[string]interface{}{"step": step})
		if err != nil {
			t.Fatalf("UpdateStatus(%s): %v", step, err)
		}
	}

	entries, err := History(db, "F1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for i, want := range []string{"first", "second", "third"} {
		var d map[string]interface{}
		if err := json.Unmarshal([]byte(entries[i].Details), &d); err != nil {
			t.Fatalf("unmarshal entry %d: %v", i, err)
		}
		if d["step"] != want {
			t.Errorf("entry %d step = %v, want %s", i, d["step"], want)
		}
	}
}
