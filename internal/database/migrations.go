package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/trickz/backend/internal/posts"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationUppercaseSubtypes = "2026-07-12_uppercase_subtypes"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationUppercaseSubtypes, apply: uppercaseSubtypes},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// uppercaseSubtypes repairs rows written before subtype normalization moved
// into the field deriver. The stored spelling is otherwise left alone; the
// MOLLY/MOLLIE equivalence stays a query-time rule.
func uppercaseSubtypes(db *gorm.DB) error {
	return db.Model(&posts.Post{}).
		Where("subtype <> UPPER(subtype)").
		Update("subtype", gorm.Expr("UPPER(subtype)")).Error
}
