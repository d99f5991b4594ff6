package repositories

import (
	"errors"

	"shoplist-server/entities"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserRepository interface {
	Create(user *entities.User) error
	GetByID(id string) (*entities.User, error)
	GetByEmail(email string) (*entities.User, error)
}

// ShoppingListRepository persists list documents. Every read returns the
// full document with items and collaborators populated.
type ShoppingListRepository interface {
	Create(list *entities.ShoppingList) error
	GetByUUID(uuid string) (*entities.ShoppingList, error)
	GetByOwnerID(userID string) ([]entities.ShoppingList, error)
	GetSharedWith(userID string) ([]entities.ShoppingList, error)
	UpdateName(uuid, name string) error
	Delete(uuid string) error

	AddItem(uuid string, item *entities.Item) error
	// SetItemBought returns ErrNotFound when the list has no such item.
	SetItemBought(uuid, itemID string, bought bool) error
	// DeleteItem succeeds whether or not the item exists.
	DeleteItem(uuid, itemID string) error

	AddCollaborator(uuid, userID string) error
}
