package storage

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/maison-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL persists entries in the kv_entries table (sqlite or postgres).
type SQL struct {
	db        *gorm.DB
	namespace string
	now       func() time.Time
}

// NewSQL binds a store to conn; the kv schema must already be migrated.
func NewSQL(conn *gorm.DB, namespace string) *SQL {
	return &SQL{db: conn, namespace: namespace, now: time.Now}
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "read "+key)
	}
	return entry.Value, true, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "write "+key)
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Delete(&models.KVEntry{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "remove "+key)
	}
	return nil
}
