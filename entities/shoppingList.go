package entities

import (
	"time"
)

// UnnamedList replaces an empty list name when items are mutated.
const UnnamedList = "Unnamed List"

// ShoppingList is the document pushed to realtime subscribers. UUID is both
// the REST resource key and the channel name.
type ShoppingList struct {
	UUID          string    `gorm:"type:varchar(36);primaryKey" json:"uuid"`
	Name          string    `gorm:"not null" json:"name"`
	OwnerID       string    `gorm:"type:varchar(36);index;not null" json:"owner"`
	Collaborators []User    `gorm:"many2many:list_collaborators;joinForeignKey:ListUUID;joinReferences:UserID" json:"collaborators"`
	Items         []Item    `gorm:"foreignKey:ListUUID;references:UUID" json:"items"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IsOwner reports whether userID owns the list.
func (l *ShoppingList) IsOwner(userID string) bool {
	return userID != "" && l.OwnerID == userID
}

// IsCollaborator reports whether userID was invited to the list.
func (l *ShoppingList) IsCollaborator(userID string) bool {
	for _, c := range l.Collaborators {
		if c.ID == userID {
			return true
		}
	}
	return false
}

// CanEditItems reports whether userID may read the list or mutate its items.
func (l *ShoppingList) CanEditItems(userID string) bool {
	return l.IsOwner(userID) || l.IsCollaborator(userID)
}

// FindItem returns the item with the given id, or nil.
func (l *ShoppingList) FindItem(itemID string) *Item {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			return &l.Items[i]
		}
	}
	return nil
}

// RemoveItem drops the item with the given id, if present.
func (l *ShoppingList) RemoveItem(itemID string) {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy so callers can mutate it freely.
func (l *ShoppingList) Clone() *ShoppingList {
	cp := *l
	cp.Collaborators = append([]User(nil), l.Collaborators...)
	cp.Items = append([]Item(nil), l.Items...)
	if cp.Collaborators == nil {
		cp.Collaborators = []User{}
	}
	if cp.Items == nil {
		cp.Items = []Item{}
	}
	return &cp
}

// ListCollaborator is the join row between lists and invited users.
type ListCollaborator struct {
	ListUUID  string `gorm:"type:varchar(36);primaryKey"`
	UserID    string `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time
}

func (ListCollaborator) TableName() string { return "list_collaborators" }
