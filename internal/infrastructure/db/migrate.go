package db

import (
	"hls-downloader/internal/domain/entities"

	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate( //* Migrate edilecek tüm tablolar eklenmeli entity içerisinden
		&entities.DownloadTask{},
		&entities.DownloadSegment{},
		&entities.DownloadSettings{},
	)
}
