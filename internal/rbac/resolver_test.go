// AngelaMos | 2026
// resolver_test.go

package rbac

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type fakeRepo struct {
	lists []core.JSONStrings
	err   error
	calls int
}

func (f *fakeRepo) ActivePermissions(
	context.Context,
	string,
	time.Time,
) ([]core.JSONStrings, error) {
	f.calls++
	return f.lists, f.err
}

func (f *fakeRepo) ListRoles(context.Context) ([]Role, error) {
	return nil, nil
}

func TestHas(t *testing.T) {
	tests := []struct {
		name      string
		set       Set
		requested string
		want      bool
	}{
		{"direct grant", NewSet(LeadsView), LeadsView, true},
		{"missing", NewSet(LeadsView), LeadsDelete, false},
		{"wildcard", NewSet(Wildcard), AdminSystem, true},
		{"prefix is opaque", NewSet("leads.*"), LeadsView, false},
		{"empty set", NewSet(), LeadsView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Has(tt.set, tt.requested); got != tt.want {
				t.Errorf("Has(%v, %q) = %v, want %v", tt.set.List(), tt.requested, got, tt.want)
			}
		})
	}
}

func TestPermissionsForUnionsRoles(t *testing.T) {
	repo := &fakeRepo{lists: []core.JSONStrings{
		{LeadsView, LeadsCreate},
		{LeadsView, ContactsView, ""},
	}}
	r := NewResolver(repo, time.Second)

	set, err := r.PermissionsFor(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := []string{ContactsView, LeadsCreate, LeadsView}
	if got := set.List(); !reflect.DeepEqual(got, want) {
		t.Fatalf("permissions = %v, want %v", got, want)
	}
}

func TestPermissionsForWildcardShortCircuits(t *testing.T) {
	repo := &fakeRepo{lists: []core.JSONStrings{
		{LeadsView},
		{Wildcard, LeadsDelete},
	}}
	r := NewResolver(repo, time.Second)

	set, err := r.PermissionsFor(context.Background(), "admin")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := set.List(); !reflect.DeepEqual(got, []string{Wildcard}) {
		t.Fatalf("permissions = %v, want [*]", got)
	}

	ok, err := r.Allowed(context.Background(), "admin", UsersDelete)
	if err != nil || !ok {
		t.Fatalf("allowed = %v, err = %v", ok, err)
	}
}

func TestAllowedWithoutRoles(t *testing.T) {
	r := NewResolver(&fakeRepo{}, time.Second)

	ok, err := r.Allowed(context.Background(), "nobody", LeadsView)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if ok {
		t.Fatal("user without roles must be denied")
	}
}

func TestAllowedReadsStoreEveryCall(t *testing.T) {
	repo := &fakeRepo{lists: []core.JSONStrings{{LeadsView}}}
	r := NewResolver(repo, time.Second)

	if ok, _ := r.Allowed(context.Background(), "u1", LeadsView); !ok {
		t.Fatal("expected grant")
	}

	repo.lists = nil
	if ok, _ := r.Allowed(context.Background(), "u1", LeadsView); ok {
		t.Fatal("revoked role still granted")
	}
	if repo.calls != 2 {
		t.Fatalf("store calls = %d, want 2", repo.calls)
	}
}

func TestAllowedPropagatesStoreError(t *testing.T) {
	storeErr := core.StoreError("load permissions", errors.New("boom"))
	r := NewResolver(&fakeRepo{err: storeErr}, time.Second)

	if _, err := r.Allowed(context.Background(), "u1", LeadsView); !errors.Is(err, core.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}

func TestRepositoryActivePermissions(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	repo := NewRepository(sqlx.NewDb(mockDB, "sqlmock"))
	now := time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"permissions"}).
		AddRow([]byte(`["leads.view","leads.create"]`)).
		AddRow([]byte(`["contacts.view"]`))

	mock.ExpectQuery(`SELECT r.permissions\s+FROM user_roles`).
		WithArgs("u1", now).
		WillReturnRows(rows)

	lists, err := repo.ActivePermissions(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("active permissions: %v", err)
	}
	if len(lists) != 2 || lists[0][1] != LeadsCreate || lists[1][0] != ContactsView {
		t.Fatalf("unexpected lists %v", lists)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRepositoryWrapsStoreFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	repo := NewRepository(sqlx.NewDb(mockDB, "sqlmock"))

	mock.ExpectQuery(`SELECT r.permissions`).
		WillReturnError(errors.New("connection refused"))

	_, err = repo.ActivePermissions(context.Background(), "u1", time.Now())
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}
