package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"backend/internal/apperr"
	"backend/internal/model"
)

// procedureRow is the database shape of a procedure: the full record as
// jsonb plus the columns queries filter on. One row per procedure id, so
// ReplaceVersion is a single-row update serialized by the database.
type procedureRow struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	CreatedBy string `gorm:"type:varchar(255);not null;index"`
	Version   int    `gorm:"not null"`
	Status    string `gorm:"type:varchar(20);not null;index"`
	Payload   string `gorm:"type:jsonb;not null"`
}

func (procedureRow) TableName() string { return "procedures" }

// GormStore is the postgres-backed RecordStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a gorm connection and migrates the procedures table.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("gormstore: connect: %w", err)
	}
	if err := db.AutoMigrate(&procedureRow{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, rec *model.Procedure) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: procedure %s already exists", apperr.ErrConflict, rec.ID)
		}
		return fmt.Errorf("gormstore: create: %w", err)
	}
	return nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*model.Procedure, error) {
	var row procedureRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: procedure %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("gormstore: find: %w", err)
	}
	return fromRow(&row)
}

func (s *GormStore) ListAll(ctx context.Context) ([]model.Procedure, error) {
	var rows []procedureRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: list: %w", err)
	}
	return fromRows(rows)
}

func (s *GormStore) ListByOwner(ctx context.Context, identity string) ([]model.Procedure, error) {
	var rows []procedureRow
	if err := s.db.WithContext(ctx).Where("created_by = ?", identity).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: list by owner: %w", err)
	}
	return fromRows(rows)
}

func (s *GormStore) ReplaceVersion(ctx context.Context, id string, rec *model.Procedure) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&procedureRow{}).Where("id = ?", id).Updates(map[string]any{
		"created_by": row.CreatedBy,
		"version":    row.Version,
		"status":     row.Status,
		"payload":    row.Payload,
	})
	if res.Error != nil {
		return fmt.Errorf("gormstore: replace: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: procedure %s", apperr.ErrNotFound, id)
	}
	return nil
}

func toRow(rec *model.Procedure) (*procedureRow, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("gormstore: encode record: %w", err)
	}
	return &procedureRow{
		ID:        rec.ID,
		CreatedBy: rec.CreatedBy,
		Version:   rec.Version,
		Status:    string(rec.Status),
		Payload:   string(payload),
	}, nil
}

func fromRow(row *procedureRow) (*model.Procedure, error) {
	var rec model.Procedure
	if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
		return nil, fmt.Errorf("gormstore: decode record %s: %w", row.ID, err)
	}
	return &rec, nil
}

func fromRows(rows []procedureRow) ([]model.Procedure, error) {
	records := make([]model.Procedure, 0, len(rows))
	for i := range rows {
		rec, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}
