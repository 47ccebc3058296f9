package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

var (
	bucketPurchases = []byte("purchases")
	bucketProofs    = []byte("payment_proofs")
	bucketOrphans   = []byte("orphaned_payments")
)

// PurchaseStore keeps the purchase log in an embedded bbolt file. Purchases
// are keyed by big-endian purchase order so a cursor walks them in order.
type PurchaseStore struct {
	db *bbolt.DB
}

func Open(path string) (*PurchaseStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("bolt: create directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt: open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPurchases, bucketProofs, bucketOrphans} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: %w", err)
	}

	return &PurchaseStore{db: db}, nil
}

func (s *PurchaseStore) Close() error { return s.db.Close() }

func orderKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

func (s *PurchaseStore) AppendPurchase(ctx context.Context, plot domain.Plot) error {
	if plot.PurchaseOrder <= 0 || plot.PaymentProof == "" {
		return fmt.Errorf("%w: plot %s is not a committed purchase", domain.ErrInvalidRequest, plot.ID)
	}

	data, err := json.Marshal(plot)
	if err != nil {
		return fmt.Errorf("encode plot %s: %w", plot.ID, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket(bucketPurchases)

		var last uint64
		if k, _ := pb.Cursor().Last(); k != nil {
			last = binary.BigEndian.Uint64(k)
		}
		if uint64(plot.PurchaseOrder) != last+1 {
			return fmt.Errorf("%w: purchase order %d does not follow %d", domain.ErrCorruptLog, plot.PurchaseOrder, last)
		}

		proofs := tx.Bucket(bucketProofs)
		if proofs.Get([]byte(plot.PaymentProof)) != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicatePayment, plot.PaymentProof)
		}

		key := orderKey(uint64(plot.PurchaseOrder))
		if err := pb.Put(key, data); err != nil {
			return fmt.Errorf("put purchase: %w", err)
		}
		return proofs.Put([]byte(plot.PaymentProof), key)
	})
}

func (s *PurchaseStore) ListPurchases(ctx context.Context) ([]domain.Plot, error) {
	var plots []domain.Plot

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPurchases).ForEach(func(k, v []byte) error {
			var p domain.Plot
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("%w: purchase %d: %v", domain.ErrCorruptLog, binary.BigEndian.Uint64(k), err)
			}
			plots = append(plots, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return plots, nil
}

func (s *PurchaseStore) RecordOrphanedPayment(ctx context.Context, orphan domain.OrphanedPayment) error {
	data, err := json.Marshal(orphan)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketOrphans)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(orderKey(seq), data)
	})
}

func (s *PurchaseStore) ListOrphanedPayments(ctx context.Context) ([]domain.OrphanedPayment, error) {
	orphans := []domain.OrphanedPayment{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOrphans).ForEach(func(k, v []byte) error {
			var o domain.OrphanedPayment
			if err := json.Unmarshal(v, &o); err != nil {
				return err
			}
			orphans = append(orphans, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return orphans, nil
}
