// Package feedback persists user ratings of chat responses in an embedded
// Badger database.
package feedback

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Record is one stored feedback entry.
type Record struct {
	FeedbackID string    `json:"feedbackId"`
	UserID     string    `json:"userId"`
	ResponseID string    `json:"responseId"`
	Rating     int       `json:"rating"`
	Feedback   string    `json:"feedback,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store is a Badger-backed feedback log.
type Store struct {
	db *badger.DB
}

// Open creates or opens the feedback database at path. An empty path opens
// an in-memory database, used by tests.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open feedback store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save assigns the record an id and timestamp and persists it. The assigned
// feedback id is returned.
func (s *Store) Save(rec Record) (string, error) {
	rec.FeedbackID = uuid.NewString()
	rec.Timestamp = time.Now().UTC()

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode feedback: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec.FeedbackID), data)
	})
	if err != nil {
		return "", fmt.Errorf("save feedback: %w", err)
	}
	return rec.FeedbackID, nil
}

// Get returns one feedback record by id.
func (s *Store) Get(feedbackID string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(feedbackID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load feedback %s: %w", feedbackID, err)
	}
	return &rec, nil
}

func key(feedbackID string) []byte {
	return []byte("feedback/" + feedbackID)
}
