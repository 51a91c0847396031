package seedhash

import (
	"sync/atomic"

	"github.com/Illumina/DRAGMAP-sub000/hashrec"
)

// BucketStore holds the logical (pre-chaining) contents of every bucket in
// the chunk currently being hashed. A logical bucket may hold more than
// hashrec.RecordsPerBucket records; the Chain/Probe Resolver later
// compacts it down to the physical 8-slot layout. One int32 CAS spin-lock
// per bucket guards concurrent appends from the hashing worker pool.
type BucketStore struct {
	records [][]hashrec.Record
	locks   []int32
}

// NewBucketStore allocates a store with n logical buckets.
func NewBucketStore(n int) *BucketStore {
	return &BucketStore{
		records: make([][]hashrec.Record, n),
		locks:   make([]int32, n),
	}
}

// Append adds rec to bucket idx, taking that bucket's spin-lock for the
// duration.
func (s *BucketStore) Append(idx int, rec hashrec.Record) {
	s.lock(idx)
	s.records[idx] = append(s.records[idx], rec)
	s.unlock(idx)
}

// AppendBatch adds every record in a pending batch to its bucket,
// amortizing the lock/unlock pair over up to len(batch) records destined
// for the same bucket.
func (s *BucketStore) AppendBatch(idx int, recs []hashrec.Record) {
	s.lock(idx)
	s.records[idx] = append(s.records[idx], recs...)
	s.unlock(idx)
}

func (s *BucketStore) lock(idx int) {
	for !atomic.CompareAndSwapInt32(&s.locks[idx], 0, 1) {
	}
}

func (s *BucketStore) unlock(idx int) {
	atomic.StoreInt32(&s.locks[idx], 0)
}

// Bucket returns a bucket's accumulated records. Only safe to call once
// hashing has finished for this chunk.
func (s *BucketStore) Bucket(idx int) []hashrec.Record {
	return s.records[idx]
}

// Len returns the number of logical buckets.
func (s *BucketStore) Len() int { return len(s.records) }
