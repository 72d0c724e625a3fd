package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	expenseBucketName = "expenses"
	tripBucketName    = "trips"
)

// DB defines the interface for database operations
type DB interface {
	// SaveExpense saves an expense to the database
	SaveExpense(expense *Expense) error

	// GetExpense retrieves an expense by ID
	GetExpense(id string) (*Expense, error)

	// ListExpenses returns all expenses
	ListExpenses() ([]*Expense, error)

	// DeleteExpense removes an expense from the database
	DeleteExpense(id string) error

	// SaveTrip saves a trip to the database
	SaveTrip(trip *Trip) error

	// GetTrip retrieves a trip by ID
	GetTrip(id string) (*Trip, error)

	// UpdateTrip loads a trip, applies fn and stores the result in one transaction.
	// Nothing is written when fn returns an error.
	UpdateTrip(id string, fn func(*Trip) error) (*Trip, error)

	// ListTrips returns all trips
	ListTrips() ([]*Trip, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{expenseBucketName, tripBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func put(tx *bbolt.Tx, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", bucket, err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
}

func get(tx *bbolt.Tx, bucket, key string, v any) error {
	data := tx.Bucket([]byte(bucket)).Get([]byte(key))
	if data == nil {
		return fmt.Errorf("%s %s: %w", bucket, key, ErrNotFound)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s %s: %w", bucket, key, err)
	}
	return nil
}

// SaveExpense saves an expense to the database
func (b *BoltDB) SaveExpense(expense *Expense) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, expenseBucketName, expense.ID, expense)
	})
}

// GetExpense retrieves an expense by ID
func (b *BoltDB) GetExpense(id string) (*Expense, error) {
	var expense Expense
	err := b.db.View(func(tx *bbolt.Tx) error {
		return get(tx, expenseBucketName, id, &expense)
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListExpenses returns all expenses
func (b *BoltDB) ListExpenses() ([]*Expense, error) {
	expenses := make([]*Expense, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var expense Expense
			if err := json.Unmarshal(v, &expense); err != nil {
				return fmt.Errorf("unmarshaling expense: %w", err)
			}
			expenses = append(expenses, &expense)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// DeleteExpense removes an expense from the database
func (b *BoltDB) DeleteExpense(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucketName))
		return bucket.Delete([]byte(id))
	})
}

// SaveTrip saves a trip to the database
func (b *BoltDB) SaveTrip(trip *Trip) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, tripBucketName, trip.ID, trip)
	})
}

// GetTrip retrieves a trip by ID
func (b *BoltDB) GetTrip(id string) (*Trip, error) {
	var trip Trip
	err := b.db.View(func(tx *bbolt.Tx) error {
		return get(tx, tripBucketName, id, &trip)
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// UpdateTrip applies fn to a trip inside a single write transaction
func (b *BoltDB) UpdateTrip(id string, fn func(*Trip) error) (*Trip, error) {
	var trip Trip
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := get(tx, tripBucketName, id, &trip); err != nil {
			return err
		}
		if err := fn(&trip); err != nil {
			return err
		}
		return put(tx, tripBucketName, id, &trip)
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// ListTrips returns all trips
func (b *BoltDB) ListTrips() ([]*Trip, error) {
	trips := make([]*Trip, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(tripBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var trip Trip
			if err := json.Unmarshal(v, &trip); err != nil {
				return fmt.Errorf("unmarshaling trip: %w", err)
			}
			trips = append(trips, &trip)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
