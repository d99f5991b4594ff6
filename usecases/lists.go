package usecases

import (
	"errors"
	"log/slog"
	"strings"

	"shoplist-server/entities"
	"shoplist-server/repositories"

	"github.com/google/uuid"
)

// Broadcaster fans list changes out to realtime subscribers. Delivery is
// best effort; implementations must not block on slow subscribers.
type Broadcaster interface {
	PublishUpdate(listUUID string, list *entities.ShoppingList)
	PublishDeletion(listUUID string)
}

// CreatedList is the response to CreateList.
type CreatedList struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// ListUseCase implements list and item operations. Item-level operations
// are open to the owner and collaborators; renaming, deleting and inviting
// are owner-only.
type ListUseCase struct {
	lists       repositories.ShoppingListRepository
	users       repositories.UserRepository
	broadcaster Broadcaster
}

func NewListUseCase(lists repositories.ShoppingListRepository, users repositories.UserRepository, broadcaster Broadcaster) *ListUseCase {
	return &ListUseCase{lists: lists, users: users, broadcaster: broadcaster}
}

// CreateList creates an empty list owned by ownerID.
func (uc *ListUseCase) CreateList(ownerID, name string) (*CreatedList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(KindInvalidInput, "list name is required")
	}
	list := &entities.ShoppingList{
		UUID:    uuid.New().String(),
		Name:    name,
		OwnerID: ownerID,
	}
	if err := uc.lists.Create(list); err != nil {
		return nil, internal("failed to create list", err)
	}
	slog.Info("list created", "list", list.UUID, "owner", ownerID)
	return &CreatedList{UUID: list.UUID, Name: list.Name}, nil
}

// GetList returns the full document if requesterID may view it.
func (uc *ListUseCase) GetList(listUUID, requesterID string) (*entities.ShoppingList, error) {
	list, err := uc.load(listUUID)
	if err != nil {
		return nil, err
	}
	if !list.CanEditItems(requesterID) {
		return nil, newError(KindForbidden, "you do not have permission to view this list")
	}
	return list, nil
}

// RenameList changes the list name. Owner only.
func (uc *ListUseCase) RenameList(listUUID, requesterID, name string) (*entities.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(KindInvalidInput, "list name is required")
	}
	list, err := uc.load(listUUID)
	if err != nil {
		return nil, err
	}
	if !list.IsOwner(requesterID) {
		return nil, newError(KindForbidden, "only the owner can edit the list name")
	}
	if err := uc.lists.UpdateName(listUUID, name); err != nil {
		return nil, uc.storeError("failed to rename list", err)
	}
	list.Name = name
	return uc.publish(list), nil
}

// DeleteList removes the list with its items and collaborator links, then
// tells subscribers the channel is gone. Owner only.
func (uc *ListUseCase) DeleteList(listUUID, requesterID string) error {
	list, err := uc.load(listUUID)
	if err != nil {
		return err
	}
	if !list.IsOwner(requesterID) {
		return newError(KindForbidden, "only the owner can delete the list")
	}
	if err := uc.lists.Delete(listUUID); err != nil {
		return uc.storeError("failed to delete list", err)
	}
	slog.Info("list deleted", "list", listUUID)
	if uc.broadcaster != nil {
		uc.broadcaster.PublishDeletion(listUUID)
	}
	return nil
}

// AddItem appends an item. An empty category becomes DefaultCategory.
func (uc *ListUseCase) AddItem(listUUID, requesterID, name, category string) (*entities.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(KindInvalidInput, "item name cannot be empty")
	}
	list, err := uc.loadForItems(listUUID, requesterID)
	if err != nil {
		return nil, err
	}
	item := &entities.Item{Name: name, Category: strings.TrimSpace(category)}
	if err := uc.lists.AddItem(listUUID, item); err != nil {
		return nil, uc.storeError("failed to add item", err)
	}
	list.Items = append(list.Items, *item)
	return uc.publish(list), nil
}

// ToggleItem sets the bought flag to exactly the given value.
func (uc *ListUseCase) ToggleItem(listUUID, requesterID, itemID string, bought bool) (*entities.ShoppingList, error) {
	list, err := uc.load(listUUID)
	if err != nil {
		return nil, err
	}
	if err := authorizeItems(list, requesterID); err != nil {
		return nil, err
	}
	// The item must exist before anything is written.
	item := list.FindItem(itemID)
	if item == nil {
		return nil, newError(KindNotFound, "item not found")
	}
	if err := uc.repairName(list); err != nil {
		return nil, err
	}
	if err := uc.lists.SetItemBought(listUUID, itemID, bought); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(KindNotFound, "item not found")
		}
		return nil, internal("failed to update item", err)
	}
	item.Bought = bought
	return uc.publish(list), nil
}

// DeleteItem removes an item. Removing an absent item is not an error.
func (uc *ListUseCase) DeleteItem(listUUID, requesterID, itemID string) (*entities.ShoppingList, error) {
	list, err := uc.loadForItems(listUUID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := uc.lists.DeleteItem(listUUID, itemID); err != nil {
		return nil, uc.storeError("failed to delete item", err)
	}
	list.RemoveItem(itemID)
	return uc.publish(list), nil
}

// InviteCollaborator grants the user registered under email item-level
// access. Owner only.
func (uc *ListUseCase) InviteCollaborator(listUUID, requesterID, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return newError(KindInvalidInput, "email is required")
	}
	list, err := uc.load(listUUID)
	if err != nil {
		return err
	}
	if !list.IsOwner(requesterID) {
		return newError(KindForbidden, "only the owner can invite collaborators")
	}
	user, err := uc.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return newError(KindNotFound, "user not found")
		}
		return internal("failed to look up user", err)
	}
	if list.IsOwner(user.ID) {
		return newError(KindInvalidInput, "the owner cannot be invited to their own list")
	}
	if list.IsCollaborator(user.ID) {
		return newError(KindAlreadyCollaborator, "user is already a collaborator")
	}
	if err := uc.repairName(list); err != nil {
		return err
	}
	if err := uc.lists.AddCollaborator(listUUID, user.ID); err != nil {
		return uc.storeError("failed to add collaborator", err)
	}
	slog.Info("collaborator added", "list", listUUID, "user", user.ID)
	list.Collaborators = append(list.Collaborators, *user)
	uc.publish(list)
	return nil
}

// ListOwnedBy returns the lists userID created.
func (uc *ListUseCase) ListOwnedBy(userID string) ([]entities.ShoppingList, error) {
	lists, err := uc.lists.GetByOwnerID(userID)
	if err != nil {
		return nil, internal("failed to load lists", err)
	}
	return lists, nil
}

// ListSharedWith returns the lists userID was invited to.
func (uc *ListUseCase) ListSharedWith(userID string) ([]entities.ShoppingList, error) {
	lists, err := uc.lists.GetSharedWith(userID)
	if err != nil {
		return nil, internal("failed to load shared lists", err)
	}
	return lists, nil
}

func (uc *ListUseCase) load(listUUID string) (*entities.ShoppingList, error) {
	if listUUID == "" {
		return nil, newError(KindInvalidInput, "list id is required")
	}
	list, err := uc.lists.GetByUUID(listUUID)
	if err != nil {
		return nil, uc.storeError("failed to load list", err)
	}
	return list, nil
}

// loadForItems loads a list for an item mutation, checking access and
// repairing an empty name.
func (uc *ListUseCase) loadForItems(listUUID, requesterID string) (*entities.ShoppingList, error) {
	list, err := uc.load(listUUID)
	if err != nil {
		return nil, err
	}
	if err := authorizeItems(list, requesterID); err != nil {
		return nil, err
	}
	if err := uc.repairName(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (uc *ListUseCase) repairName(list *entities.ShoppingList) error {
	if strings.TrimSpace(list.Name) != "" {
		return nil
	}
	if err := uc.lists.UpdateName(list.UUID, entities.UnnamedList); err != nil {
		return uc.storeError("failed to repair list name", err)
	}
	list.Name = entities.UnnamedList
	return nil
}

func authorizeItems(list *entities.ShoppingList, requesterID string) error {
	if !list.CanEditItems(requesterID) {
		return newError(KindForbidden, "you do not have permission to edit this list")
	}
	return nil
}

// publish reloads the document after a successful write and broadcasts it.
// If the reload fails the write still stands: the locally updated copy is
// returned and nothing is broadcast.
func (uc *ListUseCase) publish(local *entities.ShoppingList) *entities.ShoppingList {
	list, err := uc.lists.GetByUUID(local.UUID)
	if err != nil {
		slog.Warn("skipping broadcast, list reload failed", "list", local.UUID, "error", err)
		return local
	}
	if uc.broadcaster != nil {
		uc.broadcaster.PublishUpdate(list.UUID, list)
	}
	return list
}

func (uc *ListUseCase) storeError(msg string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(KindNotFound, "list not found")
	}
	return internal(msg, err)
}
