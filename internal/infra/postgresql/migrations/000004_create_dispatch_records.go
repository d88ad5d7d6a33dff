package migrations

import (
	"github.com/dosewatch/dosewatch/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createDispatchRecordsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_dispatch_records",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DispatchRecordModel{}); err != nil {
				return err
			}
			// ux_dispatch_occurrence comes from the model tags; the claim
			// insert depends on it. The rest are read-path indexes.
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_dispatch_records_due_date_outcome ON dispatch_records (due_date, outcome)`,
				`CREATE INDEX IF NOT EXISTS idx_dispatch_records_owner_id ON dispatch_records (owner_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DispatchRecordModel{})
		},
	}
}
