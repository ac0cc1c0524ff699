package generation

import (
	"errors"
	"sync"
	"time"
)

// ErrRecordNotFound is returned when a record cannot be found by ID.
var ErrRecordNotFound = errors.New("generation: record not found")

// RecordStatus represents the lifecycle state of one generation request.
type RecordStatus string

const (
	// RecordRunning indicates the request is still being processed.
	RecordRunning RecordStatus = "RUNNING"
	// RecordSucceeded indicates the request produced an image.
	RecordSucceeded RecordStatus = "SUCCEEDED"
	// RecordFailed indicates the request ended with a classified error.
	RecordFailed RecordStatus = "FAILED"
)

// Record is the observable trace of one generation request, kept in memory
// for the generations lookup endpoint. Records survive caller disconnects:
// an orphaned poll still finishes and its result lands here.
type Record struct {
	ID          string
	Status      RecordStatus
	ImageURL    string
	ErrorKind   Kind
	Detail      string
	SwapType    string
	Attempts    int
	Elapsed     time.Duration
	CreatedAt   time.Time
	CompletedAt time.Time
}

// RecordStore is a bounded in-memory store of generation records keyed by
// correlation ID. When full it evicts the oldest record. Process-local only.
type RecordStore struct {
	mu       sync.RWMutex
	capacity int
	records  map[string]Record
	order    []string
}

// NewRecordStore creates a store holding at most capacity records.
func NewRecordStore(capacity int) *RecordStore {
	if capacity <= 0 {
		capacity = 512
	}
	return &RecordStore{
		capacity: capacity,
		records:  make(map[string]Record),
	}
}

// Put inserts or updates a record. Updating an existing ID does not change
// its eviction position.
func (s *RecordStore) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.records, oldest)
		}
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
}

// Get retrieves a record by its correlation ID.
// Returns ErrRecordNotFound if the record does not exist or was evicted.
func (s *RecordStore) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

// Len returns the number of records currently held.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
