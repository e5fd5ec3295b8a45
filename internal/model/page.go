// Package model defines the persistence and wire models.
package model

import (
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"

	"gorm.io/gorm"
)

const TableNamePage = "page"

// Page is a synced page record.
//
// Rev increments on every successful write. Deleted is a soft-delete
// tombstone (0/1 on the wire, matching the sqlite column); tombstones are
// never physically removed so offline clients can learn about deletions.
// UpdatedAt strictly advances on every mutation and is the sole tie-breaker
// for sync convergence.
type Page struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	Title     string     `gorm:"column:title;not null" json:"title" form:"title"`
	Content   string     `gorm:"column:content;default:''" json:"content" form:"content"`
	Rev       int64      `gorm:"column:rev;default:1" json:"rev" form:"rev"`
	Deleted   int64      `gorm:"column:deleted;default:0" json:"deleted" form:"deleted"`
	CreatedAt timex.Time `gorm:"column:created_at;type:datetime;index" json:"created_at" form:"created_at"`
	UpdatedAt timex.Time `gorm:"column:updated_at;type:datetime;index" json:"updated_at" form:"updated_at"`
}

// TableName Page's table name
func (*Page) TableName() string {
	return TableNamePage
}

// Clone returns a copy so callers cannot mutate store-owned records.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Page{})
}
