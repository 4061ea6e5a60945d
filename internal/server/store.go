package server

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var (
	messagePrefix = []byte("msg:")
	userPrefix    = []byte("user:")
	sequenceKey   = []byte("seq:message")
)

// ErrNotFound is returned when a message or user does not exist
var ErrNotFound = errors.New("not found")

// Record is a stored message
type Record struct {
	ID      uint64    `json:"ID"`
	Date    time.Time `json:"Date"`
	Content string    `json:"Content"`
	UserIP  string    `json:"UserIP"`
}

// Store keeps messages and user names in badger. Message keys are the
// big-endian id, so iteration order is insertion order.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenStore opens the store at path, or an in-memory store when path is empty
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("message sequence: %w", err)
	}

	return &Store{db: db, seq: seq}, nil
}

func (s *Store) Close() error {
	return errors.Join(s.seq.Release(), s.db.Close())
}

// AddMessage stores a new message and returns it with its assigned id
func (s *Store) AddMessage(content, userIP string, at time.Time) (Record, error) {
	next, err := s.seq.Next()
	if err != nil {
		return Record{}, fmt.Errorf("next id: %w", err)
	}

	rec := Record{ID: next + 1, Date: at, Content: content, UserIP: userIP}
	value, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(rec.ID), value)
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Messages returns every stored message, oldest first
func (s *Store) Messages() ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = messagePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(messagePrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}

func (s *Store) Message(id uint64) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *Store) DeleteMessage(id uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(messageKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(messageKey(id))
	})
}

func (s *Store) SetUser(address, username string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(address), []byte(username))
	})
}

func (s *Store) User(address string) (string, error) {
	var username []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(address))
		if err != nil {
			return err
		}
		username, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	return string(username), err
}

func messageKey(id uint64) []byte {
	key := make([]byte, len(messagePrefix)+8)
	copy(key, messagePrefix)
	binary.BigEndian.PutUint64(key[len(messagePrefix):], id)
	return key
}

func userKey(address string) []byte {
	return append(append([]byte(nil), userPrefix...), address...)
}
