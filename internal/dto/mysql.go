package dto

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentRow is one stored employee document: an opaque id, the schema-less
// field map as JSON and the creation time assigned by the database.
type DocumentRow struct {
	ID        string         `gorm:"column:id"`
	Fields    datatypes.JSON `gorm:"column:fields"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}
