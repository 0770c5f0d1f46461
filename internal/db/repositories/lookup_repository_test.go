package repositories

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newLookupRepo(t *testing.T) (*LookupRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewLookupRepository(db), mock
}

func TestProductNameBySKUOrBarcode(t *testing.T) {
	repo, mock := newLookupRepo(t)
	mock.ExpectQuery("SELECT name FROM products").
		WithArgs("SKU-100").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Widget A"))

	name, err := repo.ProductNameBySKUOrBarcode(context.Background(), "SKU-100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Widget A" {
		t.Errorf("name = %q, want Widget A", name)
	}
}

func TestProductNameBySKUOrBarcode_MissIsNotAnError(t *testing.T) {
	repo, mock := newLookupRepo(t)
	mock.ExpectQuery("SELECT name FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	name, err := repo.ProductNameBySKUOrBarcode(context.Background(), "SKU-999")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if name != "" {
		t.Errorf("name = %q, want empty", name)
	}
}

func TestProductNameBySKUOrBarcode_Error(t *testing.T) {
	repo, mock := newLookupRepo(t)
	mock.ExpectQuery("SELECT name FROM products").
		WillReturnError(errDB)

	_, err := repo.ProductNameBySKUOrBarcode(context.Background(), "SKU-100")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestSKUByPickTaskID(t *testing.T) {
	repo, mock := newLookupRepo(t)
	mock.ExpectQuery("SELECT sku FROM pick_tasks WHERE id").
		WithArgs("pt-1").
		WillReturnRows(sqlmock.NewRows([]string{"sku"}).AddRow("SKU-100"))

	sku, err := repo.SKUByPickTaskID(context.Background(), "pt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sku != "SKU-100" {
		t.Errorf("sku = %q, want SKU-100", sku)
	}
}

func TestSKUByOrderItemID_Miss(t *testing.T) {
	repo, mock := newLookupRepo(t)
	mock.ExpectQuery("SELECT sku FROM order_items WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"sku"}))

	sku, err := repo.SKUByOrderItemID(context.Background(), "oi-404")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if sku != "" {
		t.Errorf("sku = %q, want empty", sku)
	}
}
