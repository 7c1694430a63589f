package wallet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	klog "github.com/Klingon-tech/cisp-wallet/internal/log"
	"github.com/Klingon-tech/cisp-wallet/internal/storage"
	"github.com/Klingon-tech/cisp-wallet/pkg/types"
)

// walletPrefix namespaces wallet records inside the shared database.
var walletPrefix = []byte("wallets/")

// Store persists wallet records keyed by address.
//
// Writes are serialized and guarded by the record revision: Update and Delete
// reject a record whose revision differs from the stored one with
// ErrStaleRecord. Every committed change is published on Events.
type Store struct {
	db     *storage.Bucket
	mu     sync.Mutex
	events *Broker
}

// NewStore returns a Store over db.
func NewStore(db storage.DB) *Store {
	return &Store{
		db:     storage.NewBucket(db, walletPrefix),
		events: NewBroker(),
	}
}

// Events returns the broker change events are published on.
func (s *Store) Events() *Broker {
	return s.events
}

// Close ends all event subscriptions. The underlying database is owned by
// the caller.
func (s *Store) Close() {
	s.events.Close()
}

// Get returns the record for addr, or ErrNotFound.
func (s *Store) Get(addr types.Address) (*Record, error) {
	data, err := s.db.Get(recordKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	if err != nil {
		return nil, storageErr("read wallet", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, storageErr("read wallet", err)
	}
	return rec, nil
}

// Has reports whether a record exists for addr.
func (s *Store) Has(addr types.Address) (bool, error) {
	ok, err := s.db.Has(recordKey(addr))
	if err != nil {
		return false, storageErr("check wallet", err)
	}
	return ok, nil
}

// Count returns the number of stored records without decoding them.
func (s *Store) Count() (int, error) {
	n, err := s.db.Count()
	if err != nil {
		return 0, storageErr("count wallets", err)
	}
	return n, nil
}

// List returns all records ordered by creation time, then address.
func (s *Store) List() ([]*Record, error) {
	var recs []*Record
	err := s.db.ForEach(nil, func(_, value []byte) error {
		rec, err := decodeRecord(value)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, storageErr("list wallets", err)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt != recs[j].CreatedAt {
			return recs[i].CreatedAt < recs[j].CreatedAt
		}
		return recs[i].Address.String() < recs[j].Address.String()
	})
	return recs, nil
}

// Insert stores a new record with revision 1. An existing record for the
// same address yields ErrDuplicateWallet and leaves the store unchanged.
func (s *Store) Insert(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(rec.Address)
	exists, err := s.db.Has(key)
	if err != nil {
		return storageErr("check wallet", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateWallet, rec.Address)
	}

	rec.Version = RecordVersion
	rec.Revision = 1
	if err := s.put(rec); err != nil {
		return err
	}
	s.events.Publish(Event{Kind: EventCreated, Address: rec.Address, Revision: rec.Revision})
	return nil
}

// Update replaces a stored record. rec.Revision must equal the stored
// revision; on success it is incremented.
func (s *Store) Update(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Get(rec.Address)
	if err != nil {
		return err
	}
	if cur.Revision != rec.Revision {
		return fmt.Errorf("%w: %s at revision %d, have %d", ErrStaleRecord, rec.Address, cur.Revision, rec.Revision)
	}

	next := rec.Clone()
	next.Revision++
	if err := s.put(next); err != nil {
		return err
	}
	rec.Revision = next.Revision
	s.events.Publish(Event{Kind: EventUpdated, Address: rec.Address, Revision: rec.Revision})
	return nil
}

// Modify applies fn to the current record for addr and stores the result.
// It is a read-modify-write that cannot lose concurrent in-process updates.
func (s *Store) Modify(addr types.Address, fn func(*Record) error) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.Get(addr)
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.Address = addr
	rec.Revision++
	if err := s.put(rec); err != nil {
		return nil, err
	}
	s.events.Publish(Event{Kind: EventUpdated, Address: addr, Revision: rec.Revision})
	return rec, nil
}

// Delete removes the record for addr if its stored revision equals revision.
func (s *Store) Delete(addr types.Address, revision uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Get(addr)
	if err != nil {
		return err
	}
	if cur.Revision != revision {
		return fmt.Errorf("%w: %s at revision %d, have %d", ErrStaleRecord, addr, cur.Revision, revision)
	}
	if err := s.db.Delete(recordKey(addr)); err != nil {
		return storageErr("delete wallet", err)
	}
	s.events.Publish(Event{Kind: EventDeleted, Address: addr, Revision: revision})
	return nil
}

// MigrateLegacy upgrades records written by older versions: bare-number
// balances become the primary token balance, and missing format versions
// and revisions are filled in. All upgrades commit in one batch. It returns
// the number of records rewritten and is a no-op on a current store.
func (s *Store) MigrateLegacy() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*Record
	err := s.db.ForEach(nil, func(_, value []byte) error {
		rec, err := decodeRecord(value)
		if err != nil {
			return err
		}
		if rec.needsMigration() {
			stale = append(stale, rec)
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("scan wallets", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	batch := s.db.NewBatch()
	for _, rec := range stale {
		rec.migrate()
		data, err := encodeRecord(rec)
		if err != nil {
			return 0, storageErr("migrate wallet", err)
		}
		if err := batch.Put(recordKey(rec.Address), data); err != nil {
			return 0, storageErr("migrate wallet", err)
		}
	}
	if err := batch.Commit(); err != nil {
		return 0, storageErr("migrate wallets", err)
	}

	for _, rec := range stale {
		klog.Store.Info().Str("address", rec.Address.String()).Msg("Migrated legacy wallet record")
		s.events.Publish(Event{Kind: EventUpdated, Address: rec.Address, Revision: rec.Revision})
	}
	return len(stale), nil
}

func (s *Store) put(rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return storageErr("write wallet", err)
	}
	if err := s.db.Put(recordKey(rec.Address), data); err != nil {
		return storageErr("write wallet", err)
	}
	return nil
}

func recordKey(addr types.Address) []byte {
	return []byte(addr.String())
}
