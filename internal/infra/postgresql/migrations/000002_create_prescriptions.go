package migrations

import (
	"github.com/dosewatch/dosewatch/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPrescriptionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_prescriptions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PrescriptionModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_prescriptions_owner_id ON prescriptions (owner_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PrescriptionModel{})
		},
	}
}
