package httpHandler

import (
	"net/http"

	"shoplist-server/usecases"

	"github.com/gin-gonic/gin"
)

type ListHandler struct {
	useCase *usecases.ListUseCase
}

func NewListHandler(useCase *usecases.ListUseCase) *ListHandler {
	return &ListHandler{useCase: useCase}
}

type listNameRequest struct {
	Name string `json:"name"`
}

type addItemRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type toggleItemRequest struct {
	Bought *bool `json:"bought" binding:"required"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

// CreateList handles POST /api/lists
func (h *ListHandler) CreateList(c *gin.Context) {
	var req listNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.useCase.CreateList(UserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetList handles GET /api/lists/:uuid
func (h *ListHandler) GetList(c *gin.Context) {
	list, err := h.useCase.GetList(c.Param("uuid"), UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// RenameList handles PATCH /api/lists/:uuid
func (h *ListHandler) RenameList(c *gin.Context) {
	var req listNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.useCase.RenameList(c.Param("uuid"), UserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteList handles DELETE /api/lists/:uuid
func (h *ListHandler) DeleteList(c *gin.Context) {
	if err := h.useCase.DeleteList(c.Param("uuid"), UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "List deleted successfully"})
}

// AddItem handles POST /api/lists/:uuid/items
func (h *ListHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.useCase.AddItem(c.Param("uuid"), UserID(c), req.Name, req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// ToggleItem handles PATCH /api/lists/:uuid/items/:itemId
func (h *ListHandler) ToggleItem(c *gin.Context) {
	var req toggleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.useCase.ToggleItem(c.Param("uuid"), UserID(c), c.Param("itemId"), *req.Bought)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteItem handles DELETE /api/lists/:uuid/items/:itemId
func (h *ListHandler) DeleteItem(c *gin.Context) {
	list, err := h.useCase.DeleteItem(c.Param("uuid"), UserID(c), c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Invite handles POST /api/lists/:uuid/invite
func (h *ListHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.useCase.InviteCollaborator(c.Param("uuid"), UserID(c), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collaborator added successfully"})
}

// OwnedLists handles GET /api/user/lists
func (h *ListHandler) OwnedLists(c *gin.Context) {
	lists, err := h.useCase.ListOwnedBy(UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

// SharedLists handles GET /api/shared/lists
func (h *ListHandler) SharedLists(c *gin.Context) {
	lists, err := h.useCase.ListSharedWith(UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}
