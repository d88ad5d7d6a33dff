package migrations

import (
	"github.com/dosewatch/dosewatch/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createSchedulesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_medication_schedules",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ScheduleModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_schedules_owner_id ON medication_schedules (owner_id)`,
				`CREATE INDEX IF NOT EXISTS idx_schedules_active_range ON medication_schedules (start_date, end_date)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ScheduleModel{})
		},
	}
}
