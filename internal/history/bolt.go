// Package history keeps a local, append-only log of successful scans in a
// single-file bolt database, so kiosks can show recent activity and support
// staff can audit decode problems offline.
package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"loyscan/pkg/serrors"
)

const scansBucket = "scans"

// boltOpenTimeout bounds how long Open waits on the file lock held by
// another process.
const boltOpenTimeout = time.Second

// Options configure the bolt-backed store.
type Options struct {
	// Path is the database file location. The file is created when missing.
	Path string
}

// NewOptions builds Options for the given database path.
func NewOptions(path string) Options {
	return Options{Path: path}
}

type boltStore struct {
	db *bbolt.DB
}

var _ Store = (*boltStore)(nil)

// NewBolt opens (or creates) the history database at opts.Path.
func NewBolt(opts Options) (Store, error) {
	db, err := bbolt.Open(opts.Path, 0o600, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not open history database")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(scansBucket))

		return err //nolint: wrapcheck
	})
	if err != nil {
		_ = db.Close()

		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not create history bucket")
	}

	return &boltStore{db: db}, nil
}

func (s *boltStore) Append(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err //nolint: wrapcheck
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scansBucket))

		seq, err := bucket.NextSequence()
		if err != nil {
			return err //nolint: wrapcheck
		}

		data, err := json.Marshal(record)
		if err != nil {
			return err //nolint: wrapcheck
		}

		return bucket.Put(seqKey(seq), data) //nolint: wrapcheck
	})
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not append history record")
	}

	return nil
}

func (s *boltStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint: wrapcheck
	}
	if limit <= 0 {
		return []Record{}, nil
	}

	records := make([]Record, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		// records are keyed by an increasing sequence number, so a backward
		// cursor walk yields newest first
		cursor := tx.Bucket([]byte(scansBucket)).Cursor()
		for k, v := cursor.Last(); k != nil && len(records) < limit; k, v = cursor.Prev() {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err //nolint: wrapcheck
			}
			records = append(records, record)
		}

		return nil
	})
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "could not read history records")
	}

	return records, nil
}

func (s *boltStore) Close() error {
	return s.db.Close() //nolint: wrapcheck
}

// seqKey encodes a sequence number as a big-endian key so byte order matches
// insertion order.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)

	return key
}
