package kvstore

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStoreWithDB(db, "appcore")

	mock.ExpectQuery(`SELECT v FROM kv_blobs WHERE k = \$1`).
		WithArgs("appcore:session").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow([]byte(`{"v":1}`)))

	got, err := store.Get(context.Background(), "session")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Fatalf("Get = %s", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStoreWithDB(db, "")

	mock.ExpectQuery(`SELECT v FROM kv_blobs WHERE k = \$1`).
		WithArgs("session").
		WillReturnRows(sqlmock.NewRows([]string{"v"}))

	if _, err := store.Get(context.Background(), "session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_SetUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStoreWithDB(db, "appcore")

	mock.ExpectExec(`INSERT INTO kv_blobs`).
		WithArgs("appcore:cart", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Set(context.Background(), "cart", []byte(`{}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_Remove(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewPostgresStoreWithDB(db, "appcore")

	mock.ExpectExec(`DELETE FROM kv_blobs WHERE k = \$1`).
		WithArgs("appcore:login_data").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Remove(context.Background(), "login_data"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
