package repositories

import (
	"sort"
	"sync"
	"time"

	"shoplist-server/entities"
)

// MemoryStore keeps users and lists in process memory. It backs
// STORE_DRIVER=memory and the test suites; contents are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]entities.User // userID -> user
	emails map[string]string        // email -> userID
	lists  map[string]*memoryList   // list uuid -> document
}

type memoryList struct {
	list          entities.ShoppingList
	collaborators []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]entities.User),
		emails: make(map[string]string),
		lists:  make(map[string]*memoryList),
	}
}

// Users returns the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Lists returns the store as a ShoppingListRepository.
func (s *MemoryStore) Lists() ShoppingListRepository { return memoryLists{s} }

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.emails[user.Email]; exists {
		return ErrDuplicateEmail
	}
	user.EnsureID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	r.s.emails[user.Email] = user.ID
	return nil
}

func (r memoryUsers) GetByID(id string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memoryUsers) GetByEmail(email string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

type memoryLists struct{ s *MemoryStore }

func (r memoryLists) Create(list *entities.ShoppingList) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}
	stored := *list
	stored.Items = nil
	stored.Collaborators = nil
	r.s.lists[list.UUID] = &memoryList{list: stored}
	return nil
}

func (r memoryLists) GetByUUID(uuid string) (*entities.ShoppingList, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ml, ok := r.s.lists[uuid]
	if !ok {
		return nil, ErrNotFound
	}
	return r.s.document(ml), nil
}

func (r memoryLists) GetByOwnerID(userID string) ([]entities.ShoppingList, error) {
	return r.s.filter(func(ml *memoryList) bool { return ml.list.OwnerID == userID }), nil
}

func (r memoryLists) GetSharedWith(userID string) ([]entities.ShoppingList, error) {
	return r.s.filter(func(ml *memoryList) bool {
		for _, id := range ml.collaborators {
			if id == userID {
				return true
			}
		}
		return false
	}), nil
}

func (r memoryLists) UpdateName(uuid, name string) error {
	return r.s.mutate(uuid, func(ml *memoryList) error {
		ml.list.Name = name
		return nil
	})
}

func (r memoryLists) Delete(uuid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.lists[uuid]; !ok {
		return ErrNotFound
	}
	delete(r.s.lists, uuid)
	return nil
}

func (r memoryLists) AddItem(uuid string, item *entities.Item) error {
	return r.s.mutate(uuid, func(ml *memoryList) error {
		item.ListUUID = uuid
		item.EnsureDefaults()
		ml.list.Items = append(ml.list.Items, *item)
		return nil
	})
}

func (r memoryLists) SetItemBought(uuid, itemID string, bought bool) error {
	return r.s.mutate(uuid, func(ml *memoryList) error {
		item := ml.list.FindItem(itemID)
		if item == nil {
			return ErrNotFound
		}
		item.Bought = bought
		return nil
	})
}

func (r memoryLists) DeleteItem(uuid, itemID string) error {
	return r.s.mutate(uuid, func(ml *memoryList) error {
		kept := ml.list.Items[:0]
		for _, it := range ml.list.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		ml.list.Items = kept
		return nil
	})
}

func (r memoryLists) AddCollaborator(uuid, userID string) error {
	return r.s.mutate(uuid, func(ml *memoryList) error {
		for _, id := range ml.collaborators {
			if id == userID {
				return nil
			}
		}
		ml.collaborators = append(ml.collaborators, userID)
		return nil
	})
}

func (s *MemoryStore) mutate(uuid string, fn func(ml *memoryList) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ml, ok := s.lists[uuid]
	if !ok {
		return ErrNotFound
	}
	return fn(ml)
}

// filter returns documents matching keep, newest first.
func (s *MemoryStore) filter(keep func(ml *memoryList) bool) []entities.ShoppingList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.ShoppingList, 0)
	for _, ml := range s.lists {
		if keep(ml) {
			out = append(out, *s.document(ml))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// document builds a detached copy of a stored list with collaborators
// resolved. Callers must hold s.mu.
func (s *MemoryStore) document(ml *memoryList) *entities.ShoppingList {
	doc := ml.list.Clone()
	for _, id := range ml.collaborators {
		if u, ok := s.users[id]; ok {
			doc.Collaborators = append(doc.Collaborators, u)
		}
	}
	return doc
}
