package wallet

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Klingon-tech/cisp-wallet/internal/storage"
	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

func testStore(t *testing.T) (*Store, storage.DB) {
	t.Helper()
	db := storage.NewMemory()
	s := NewStore(db)
	t.Cleanup(s.Close)
	return s, db
}

func testRecord(b byte, createdAt int64) *Record {
	var addr types.Address
	addr[0] = b
	return &Record{
		Address:   addr,
		Name:      fmt.Sprintf("wallet-%d", b),
		CreatedAt: createdAt,
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	s, _ := testStore(t)
	rec := testRecord(1, 100)

	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if rec.Revision != 1 || rec.Version != RecordVersion {
		t.Errorf("inserted revision/version = %d/%d", rec.Revision, rec.Version)
	}

	got, err := s.Get(rec.Address)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if *got != *rec {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
}

func TestStore_InsertDuplicate(t *testing.T) {
	s, _ := testStore(t)
	if err := s.Insert(testRecord(1, 100)); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	dup := testRecord(1, 200)
	dup.Name = "other"
	if err := s.Insert(dup); !errors.Is(err, ErrDuplicateWallet) {
		t.Fatalf("Insert() duplicate error = %v, want ErrDuplicateWallet", err)
	}

	got, _ := s.Get(dup.Address)
	if got.Name != "wallet-1" {
		t.Error("duplicate insert should leave the store unchanged")
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Get(types.Address{9}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	ok, err := s.Has(types.Address{9})
	if err != nil || ok {
		t.Errorf("Has() = %v, %v", ok, err)
	}
}

func TestStore_CorruptRecord(t *testing.T) {
	s, db := testStore(t)
	addr := types.Address{5}
	if err := db.Put(append([]byte("wallets/"), addr.String()...), []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(addr); !errors.Is(err, ErrStorage) {
		t.Errorf("Get() error = %v, want ErrStorage", err)
	}
}

func TestStore_List(t *testing.T) {
	s, db := testStore(t)
	for _, r := range []*Record{testRecord(3, 300), testRecord(1, 100), testRecord(2, 100)} {
		if err := s.Insert(r); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}
	// Keys outside the wallet namespace are ignored.
	if err := db.Put([]byte("other/key"), []byte("x")); err != nil {
		t.Fatal(err)
	}

	recs, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("List() returned %d records, want 3", len(recs))
	}
	want := []byte{1, 2, 3}
	for i, r := range recs {
		if r.Address[0] != want[i] {
			t.Errorf("recs[%d] = %x, want first byte %d", i, r.Address, want[i])
		}
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestStore_UpdateRevision(t *testing.T) {
	s, _ := testStore(t)
	rec := testRecord(1, 100)
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Get(rec.Address)
	b, _ := s.Get(rec.Address)

	a.Name = "first"
	if err := s.Update(a); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if a.Revision != 2 {
		t.Errorf("revision after update = %d, want 2", a.Revision)
	}

	b.Name = "second"
	if err := s.Update(b); !errors.Is(err, ErrStaleRecord) {
		t.Fatalf("stale Update() error = %v, want ErrStaleRecord", err)
	}

	got, _ := s.Get(rec.Address)
	if got.Name != "first" {
		t.Errorf("name = %q, want %q", got.Name, "first")
	}
}

func TestStore_UpdateNotFound(t *testing.T) {
	s, _ := testStore(t)
	if err := s.Update(testRecord(1, 0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ModifyConcurrent(t *testing.T) {
	s, _ := testStore(t)
	rec := testRecord(1, 100)
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Modify(rec.Address, func(r *Record) error {
				r.Balances.PrimaryToken++
				return nil
			})
			if err != nil {
				t.Errorf("Modify() error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(rec.Address)
	if got.Balances.PrimaryToken != n {
		t.Errorf("primary balance = %v, want %d (lost updates)", got.Balances.PrimaryToken, n)
	}
	if got.Revision != n+1 {
		t.Errorf("revision = %d, want %d", got.Revision, n+1)
	}
}

func TestStore_ModifyError(t *testing.T) {
	s, _ := testStore(t)
	rec := testRecord(1, 100)
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if _, err := s.Modify(rec.Address, func(*Record) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Modify() error = %v, want boom", err)
	}
	got, _ := s.Get(rec.Address)
	if got.Revision != 1 {
		t.Error("failed Modify should not write")
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := testStore(t)
	rec := testRecord(1, 100)
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(rec.Address, 7); !errors.Is(err, ErrStaleRecord) {
		t.Errorf("Delete() with wrong revision error = %v, want ErrStaleRecord", err)
	}
	if err := s.Delete(rec.Address, 1); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(rec.Address); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(rec.Address, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_MigrateLegacy(t *testing.T) {
	s, db := testStore(t)

	legacy := []string{
		`{"address":"CISP0100000000000000000000000000000000000000","name":"old","balances":12.5,"version":1}`,
		`{"address":"CISP0200000000000000000000000000000000000000","name":"older","balances":3}`,
	}
	for i, js := range legacy {
		var addr types.Address
		addr[0] = byte(i + 1)
		if err := db.Put(append([]byte("wallets/"), addr.String()...), []byte(js)); err != nil {
			t.Fatal(err)
		}
	}
	current := testRecord(3, 100)
	if err := s.Insert(current); err != nil {
		t.Fatal(err)
	}

	n, err := s.MigrateLegacy()
	if err != nil {
		t.Fatalf("MigrateLegacy() error: %v", err)
	}
	if n != 2 {
		t.Errorf("MigrateLegacy() migrated %d records, want 2", n)
	}

	got, err := s.Get(types.Address{1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Balances.PrimaryToken != 12.5 || got.Balances.SecondaryToken != 0 {
		t.Errorf("migrated balances = %+v", got.Balances)
	}
	if got.Version != RecordVersion || got.Revision != 1 {
		t.Errorf("migrated version/revision = %d/%d", got.Version, got.Revision)
	}
	if got.Balances.legacy {
		t.Error("stored record should no longer be legacy")
	}

	n, err = s.MigrateLegacy()
	if err != nil || n != 0 {
		t.Errorf("second MigrateLegacy() = %d, %v; want 0, nil", n, err)
	}
}

func TestStore_Events(t *testing.T) {
	s, _ := testStore(t)
	sub, err := s.Events().Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Cancel()

	rec := testRecord(1, 100)
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Modify(rec.Address, func(r *Record) error { r.Name = "renamed"; return nil }); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(rec.Address, 2); err != nil {
		t.Fatal(err)
	}

	want := []Event{
		{Kind: EventCreated, Address: rec.Address, Revision: 1},
		{Kind: EventUpdated, Address: rec.Address, Revision: 2},
		{Kind: EventDeleted, Address: rec.Address, Revision: 2},
	}
	for i, w := range want {
		select {
		case ev := <-sub.Updates():
			if ev != w {
				t.Errorf("event %d = %+v, want %+v", i, ev, w)
			}
		default:
			t.Fatalf("event %d missing", i)
		}
	}
}

func TestStore_Backends(t *testing.T) {
	for _, backend := range []string{storage.BackendBadger, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			db, err := storage.Open(backend, t.TempDir())
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			defer db.Close()

			s := NewStore(db)
			defer s.Close()
			rec := testRecord(1, 100)
			if err := s.Insert(rec); err != nil {
				t.Fatalf("Insert() error: %v", err)
			}
			if _, err := s.Modify(rec.Address, func(r *Record) error { r.LastAccessed = 5; return nil }); err != nil {
				t.Fatalf("Modify() error: %v", err)
			}
			recs, err := s.List()
			if err != nil || len(recs) != 1 || recs[0].LastAccessed != 5 {
				t.Fatalf("List() = %v, %v", recs, err)
			}
		})
	}
}
