package server

import (
	"fmt"
	"net/http"
	"time"

	"shoplist-server/confs"
	"shoplist-server/handlers"
	httpHandler "shoplist-server/handlers/http"
	"shoplist-server/repositories"
	"shoplist-server/services"
	"shoplist-server/usecases"
	"shoplist-server/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Stores bundles the repositories the server runs on.
type Stores struct {
	Users repositories.UserRepository
	Lists repositories.ShoppingListRepository
}

type Server struct {
	app       *gin.Engine
	cfg       *confs.Config
	stores    Stores
	suggester services.Suggester
	manager   *ws.Manager
}

func NewServer(cfg *confs.Config, stores Stores, suggester services.Suggester) *Server {
	s := &Server{
		app:       gin.Default(),
		cfg:       cfg,
		stores:    stores,
		suggester: suggester,
		manager:   ws.NewManager(),
	}
	s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.app }

// Manager returns the realtime registry.
func (s *Server) Manager() *ws.Manager { return s.manager }

// HTTPServer builds the listener for the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", s.cfg.Port),
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) routes() {
	// Setup CORS middleware
	config := cors.DefaultConfig()
	config.AllowOrigins = s.cfg.AllowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	s.app.Use(cors.New(config))

	// Setup healthcheck route
	s.app.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	// Initialize use cases
	tokens := services.NewTokenService(s.cfg.JWTSecret, s.cfg.TokenTTL)
	authUseCase := usecases.NewAuthUseCase(s.stores.Users, tokens)
	listUseCase := usecases.NewListUseCase(s.stores.Lists, s.stores.Users, s.manager)

	// Initialize handlers
	authHandler := httpHandler.NewAuthHandler(authUseCase)
	listHandler := httpHandler.NewListHandler(listUseCase)
	suggestHandler := httpHandler.NewSuggestHandler(s.suggester)
	wsHandler := handlers.NewWSHandler(s.manager, authUseCase, listUseCase, s.cfg.AllowedOrigins)

	requireAuth := httpHandler.RequireAuth(authUseCase)

	api := s.app.Group("/api")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/ai-suggest", suggestHandler.Suggest)

		authed := api.Group("", requireAuth)
		{
			authed.GET("/me", authHandler.Me)

			lists := authed.Group("/lists")
			{
				lists.POST("", listHandler.CreateList)
				lists.GET("/:uuid", listHandler.GetList)
				lists.PATCH("/:uuid", listHandler.RenameList)
				lists.DELETE("/:uuid", listHandler.DeleteList)
				lists.POST("/:uuid/items", listHandler.AddItem)
				lists.PATCH("/:uuid/items/:itemId", listHandler.ToggleItem)
				lists.DELETE("/:uuid/items/:itemId", listHandler.DeleteItem)
				lists.POST("/:uuid/invite", listHandler.Invite)
			}

			authed.GET("/user/lists", listHandler.OwnedLists)
			authed.GET("/shared/lists", listHandler.SharedLists)
			authed.GET("/realtime/channels", wsHandler.GetChannels)
		}
	}

	s.app.GET("/ws", wsHandler.HandleListWS)
}
