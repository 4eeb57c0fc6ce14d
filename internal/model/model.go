// Package model declares the persisted record types of the application.
//
// References between records are identifier fields. Each has a belongs-to field next
// to it so that AutoMigrate creates the foreign key constraint under the same name the
// schema catalog (internal/schema) uses; those fields are never loaded implicitly.
package model

import (
	"time"

	"gorm.io/gorm"
)

// Now returns the current time as epoch seconds, the unit of every timestamp column.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Timestamps is embedded by records that carry created_at / updated_at.
type Timestamps struct {
	CreatedAt float64 `gorm:"column:created_at" json:"created_at"`
	UpdatedAt float64 `gorm:"column:updated_at" json:"updated_at"`
}

// BeforeSave sets created_at once and refreshes updated_at on every write.
func (t *Timestamps) BeforeSave(tx *gorm.DB) error {
	now := Now()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	// Update/Updates with a map or a separate struct do not read the model back.
	switch tx.Statement.Dest.(type) {
	case map[string]interface{}:
		tx.Statement.SetColumn("UpdatedAt", now, true)
	default:
		if tx.Statement.Dest != tx.Statement.Model {
			tx.Statement.SetColumn("UpdatedAt", now, true)
		}
	}
	return nil
}

// All returns one zero value of every record type, in foreign key dependency order.
func All() []interface{} {
	return []interface{}{
		&Project{},
		&TodoBoard{},
		&TodoStage{},
		&ProjectVersion{},
		&PPTTemplate{},
		&SlideData{},
		&GlobalMasterTemplate{},
	}
}

// AutoMigrate creates or updates the tables of every record type through the ORM.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
