package repositories

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/warehouse-ops/warehouse-ops/internal/db/models"
)

func newLocationRepo(t *testing.T) (*LocationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewLocationRepository(db), mock
}

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

func TestGetLocation_Found(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectQuery("SELECT \\* FROM bin_locations WHERE id").
		WithArgs("A-01-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "zone", "aisle", "capacity", "sku"}).
			AddRow("A-01-01", "A", "01", 50, "SKU-100"))

	loc, err := repo.Get(context.Background(), "A-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc == nil || loc.Zone != "A" || loc.SKU == nil || *loc.SKU != "SKU-100" {
		t.Errorf("loc = %+v", loc)
	}
}

func TestCreateLocation(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("INSERT INTO bin_locations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	loc := &models.BinLocation{ID: "A-01-02", Zone: "A", Aisle: "01", Capacity: 50}
	if err := repo.Create(context.Background(), loc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateLocation_Unknown(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("UPDATE bin_locations SET zone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.BinLocation{ID: "Z-99-99"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

// ---------------------------------------------------------------------------
// Putaway and slotting
// ---------------------------------------------------------------------------

func TestPutaway(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("UPDATE bin_locations SET sku").
		WithArgs("A-01-01", "SKU-100").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Putaway(context.Background(), "A-01-01", "SKU-100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPutaway_OccupiedBin(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("UPDATE bin_locations SET sku").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Putaway(context.Background(), "A-01-01", "SKU-100")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestApplySlotting(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bin_locations SET sku").
		WithArgs("A-01-01", "SKU-200").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bin_locations SET sku").
		WithArgs("A-01-02", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	moves := []SlottingMove{
		{LocationID: "A-01-01", SKU: "SKU-200"},
		{LocationID: "A-01-02", SKU: ""},
	}
	if err := repo.ApplySlotting(context.Background(), moves); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApplySlotting_UnknownBinAbortsPlan(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bin_locations SET sku").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplySlotting(context.Background(), []SlottingMove{{LocationID: "Z-99-99", SKU: "SKU-1"}})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Zones
// ---------------------------------------------------------------------------

func TestAssignZone_RepeatAssignmentIsNoop(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("INSERT INTO zone_assignments").
		WithArgs("user-1", "A").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.AssignZone(context.Background(), "user-1", "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseZone_NotAssigned(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("DELETE FROM zone_assignments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReleaseZone(context.Background(), "user-1", "B")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestRebalanceZones(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("DELETE FROM zone_assignments WHERE zone IN").
		WithArgs("A", "B").
		WillReturnResult(sqlmock.NewResult(0, 5))

	cleared, err := repo.RebalanceZones(context.Background(), []string{"A", "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared != 5 {
		t.Errorf("cleared = %d, want 5", cleared)
	}
}

// ---------------------------------------------------------------------------
// Cycle counts
// ---------------------------------------------------------------------------

func TestCreateCycleCount(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) \\+ 1 FROM cycle_counts").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectExec("INSERT INTO cycle_counts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	countID, err := repo.CreateCycleCount(context.Background(), "A-01-01", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countID != "CC-1007" {
		t.Errorf("countID = %q, want CC-1007", countID)
	}
}

func TestCompleteCycleCount_AlreadyClosed(t *testing.T) {
	repo, mock := newLocationRepo(t)
	mock.ExpectExec("UPDATE cycle_counts SET status = 'completed'").
		WithArgs("CC-1007", 48).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CompleteCycleCount(context.Background(), "CC-1007", 48)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}
