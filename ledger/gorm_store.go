package ledger

import (
	"context"
	"errors"
	"fmt"

	"arena-ledger-system/models"

	"gorm.io/gorm"
)

// GormStore implements Store on a relational table-with-version-column
// scheme: each dirty record is written back with
// UPDATE ... WHERE id = ? AND version = ?, and zero affected rows means a
// concurrent writer got there first. All writes of one commit run inside a
// single database transaction, so a commit is never partially applied.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, keys []Key) (*Txn, error) {
	txn := NewTxn()
	for _, k := range keys {
		rec, err := s.fetch(ctx, k)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // absent records are simply not in the snapshot
			}
			return nil, err
		}
		txn.Put(k, rec)
	}
	return txn, nil
}

func (s *GormStore) fetch(ctx context.Context, k Key) (Record, error) {
	switch k.Kind {
	case KindUser:
		var u models.PortalUser
		if err := s.db.WithContext(ctx).First(&u, "id = ?", k.ID).Error; err != nil {
			return nil, err
		}
		return &u, nil
	case KindMatch:
		var m models.Match
		if err := s.db.WithContext(ctx).First(&m, "id = ?", k.ID).Error; err != nil {
			return nil, err
		}
		return &m, nil
	case KindRequest:
		var r models.FundRequest
		if err := s.db.WithContext(ctx).First(&r, "id = ?", k.ID).Error; err != nil {
			return nil, err
		}
		return &r, nil
	}
	return nil, fmt.Errorf("ledger: unknown record kind %q", k.Kind)
}

func (s *GormStore) Commit(ctx context.Context, txn *Txn) error {
	if !txn.HasWrites() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, k := range txn.DirtyKeys() {
			rec, loadedVersion := txn.RecordAt(k)
			bumpVersion(rec, loadedVersion+1)

			res := tx.Model(rec).
				Where("version = ?", loadedVersion).
				Select("*").
				Omit("created_at").
				Updates(rec)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
		}

		for _, ins := range txn.Inserts() {
			if err := tx.Create(ins).Error; err != nil {
				// A duplicate key on insert is a lost race with a concurrent
				// transaction (requires gorm.Config{TranslateError: true}).
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrConflict
				}
				return err
			}
		}
		return nil
	})
}

func bumpVersion(rec Record, next int64) {
	switch r := rec.(type) {
	case *models.PortalUser:
		r.Version = next
	case *models.Match:
		r.Version = next
	case *models.FundRequest:
		r.Version = next
	}
}
