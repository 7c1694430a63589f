package storage

// Bucket is a DB view confined to one key prefix. Keys passed to and
// returned from a Bucket are relative to that prefix, so several record
// kinds can share one database without colliding.
type Bucket struct {
	db     DB
	prefix []byte
}

// NewBucket returns the view of db under prefix.
func NewBucket(db DB, prefix []byte) *Bucket {
	return &Bucket{db: db, prefix: cloneBytes(prefix)}
}

func (b *Bucket) key(k []byte) []byte {
	out := make([]byte, 0, len(b.prefix)+len(k))
	return append(append(out, b.prefix...), k...)
}

// Get returns the value stored under k, or ErrNotFound.
func (b *Bucket) Get(k []byte) ([]byte, error) { return b.db.Get(b.key(k)) }

// Put stores value under k.
func (b *Bucket) Put(k, value []byte) error { return b.db.Put(b.key(k), value) }

// Delete removes k. Deleting a missing key is not an error.
func (b *Bucket) Delete(k []byte) error { return b.db.Delete(b.key(k)) }

// Has reports whether k exists.
func (b *Bucket) Has(k []byte) (bool, error) { return b.db.Has(b.key(k)) }

// ForEach visits every entry in the bucket whose relative key starts with
// prefix. fn sees relative keys.
func (b *Bucket) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(b.prefix)
	return b.db.ForEach(b.key(prefix), func(k, v []byte) error {
		return fn(k[n:], v)
	})
}

// Count returns the number of entries in the bucket.
func (b *Bucket) Count() (int, error) {
	n := 0
	err := b.db.ForEach(b.prefix, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

// NewBatch returns a batch of bucket-relative writes committed atomically
// by the underlying database.
func (b *Bucket) NewBatch() Batch {
	return &bucketBatch{inner: b.db.NewBatch(), bucket: b}
}

type bucketBatch struct {
	inner  Batch
	bucket *Bucket
}

func (bb *bucketBatch) Put(k, value []byte) error { return bb.inner.Put(bb.bucket.key(k), value) }

func (bb *bucketBatch) Delete(k []byte) error { return bb.inner.Delete(bb.bucket.key(k)) }

func (bb *bucketBatch) Commit() error { return bb.inner.Commit() }
