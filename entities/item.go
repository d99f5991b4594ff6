package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultCategory is used when an item is added without one.
const DefaultCategory = "Groceries"

type Item struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ListUUID  string    `gorm:"type:varchar(36);index;not null" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	Category  string    `json:"category"`
	Bought    bool      `gorm:"not null;default:false" json:"bought"`
	CreatedAt time.Time `json:"createdAt"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) (err error) {
	i.EnsureDefaults()
	return nil
}

// EnsureDefaults fills the identifier, category and creation time.
func (i *Item) EnsureDefaults() {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Category == "" {
		i.Category = DefaultCategory
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
}
