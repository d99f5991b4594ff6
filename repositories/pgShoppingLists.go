package repositories

import (
	"shoplist-server/db"
	"shoplist-server/entities"

	"gorm.io/gorm"
)

type shoppingListPgRepository struct {
	db db.Database
}

func NewShoppingListPgRepository(database db.Database) ShoppingListRepository {
	return &shoppingListPgRepository{db: database}
}

// document preloads everything a list document carries.
func (r *shoppingListPgRepository) document() *gorm.DB {
	return r.db.GetDB().
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("items.created_at ASC, items.id ASC")
		}).
		Preload("Collaborators")
}

func (r *shoppingListPgRepository) Create(list *entities.ShoppingList) error {
	// Collaborators and items are written through their own calls.
	return r.db.GetDB().Omit("Collaborators", "Items").Create(list).Error
}

func (r *shoppingListPgRepository) GetByUUID(uuid string) (*entities.ShoppingList, error) {
	var list entities.ShoppingList
	err := r.document().Where("uuid = ?", uuid).First(&list).Error
	if err != nil {
		return nil, translate(err)
	}
	return normalize(&list), nil
}

func (r *shoppingListPgRepository) GetByOwnerID(userID string) ([]entities.ShoppingList, error) {
	var lists []entities.ShoppingList
	err := r.document().Where("owner_id = ?", userID).Order("created_at DESC").Find(&lists).Error
	return normalizeAll(lists), err
}

func (r *shoppingListPgRepository) GetSharedWith(userID string) ([]entities.ShoppingList, error) {
	var lists []entities.ShoppingList
	err := r.document().
		Joins("JOIN list_collaborators ON list_collaborators.list_uuid = shopping_lists.uuid").
		Where("list_collaborators.user_id = ?", userID).
		Order("shopping_lists.created_at DESC").
		Find(&lists).Error
	return normalizeAll(lists), err
}

func (r *shoppingListPgRepository) UpdateName(uuid, name string) error {
	res := r.db.GetDB().Model(&entities.ShoppingList{}).Where("uuid = ?", uuid).Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *shoppingListPgRepository) Delete(uuid string) error {
	return r.db.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_uuid = ?", uuid).Delete(&entities.Item{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_uuid = ?", uuid).Delete(&entities.ListCollaborator{}).Error; err != nil {
			return err
		}
		res := tx.Where("uuid = ?", uuid).Delete(&entities.ShoppingList{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *shoppingListPgRepository) AddItem(uuid string, item *entities.Item) error {
	item.ListUUID = uuid
	return r.db.GetDB().Create(item).Error
}

func (r *shoppingListPgRepository) SetItemBought(uuid, itemID string, bought bool) error {
	res := r.db.GetDB().Model(&entities.Item{}).
		Where("id = ? AND list_uuid = ?", itemID, uuid).
		Update("bought", bought)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *shoppingListPgRepository) DeleteItem(uuid, itemID string) error {
	return r.db.GetDB().Where("id = ? AND list_uuid = ?", itemID, uuid).Delete(&entities.Item{}).Error
}

func (r *shoppingListPgRepository) AddCollaborator(uuid, userID string) error {
	return r.db.GetDB().Create(&entities.ListCollaborator{ListUUID: uuid, UserID: userID}).Error
}

// normalize replaces nil slices so documents always serialise as arrays.
func normalize(list *entities.ShoppingList) *entities.ShoppingList {
	if list.Items == nil {
		list.Items = []entities.Item{}
	}
	if list.Collaborators == nil {
		list.Collaborators = []entities.User{}
	}
	return list
}

func normalizeAll(lists []entities.ShoppingList) []entities.ShoppingList {
	if lists == nil {
		return []entities.ShoppingList{}
	}
	for i := range lists {
		normalize(&lists[i])
	}
	return lists
}
