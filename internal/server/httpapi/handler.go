// Package httpapi exposes the REST surface of the relay: registration,
// login, public key lookup, presence, and conversation history.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/svoychat/svoychat/internal/common"
	"github.com/svoychat/svoychat/internal/logging"
	"github.com/svoychat/svoychat/internal/server/auth"
	"github.com/svoychat/svoychat/internal/server/config"
	"github.com/svoychat/svoychat/internal/server/engine"
	"github.com/svoychat/svoychat/internal/server/users"
	"github.com/svoychat/svoychat/internal/server/ws"
)

type Server struct {
	engine   *engine.Engine
	registry *users.Registry
	cfg      *config.Config
	logger   logging.Logger
}

func NewServer(e *engine.Engine, r *users.Registry, cfg *config.Config, l logging.Logger) *Server {
	return &Server{engine: e, registry: r, cfg: cfg, logger: l.With("module", "httpapi")}
}

// Router builds the gin engine with all routes attached, including the
// websocket upgrade endpoint.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.POST("/register", s.register)
		api.POST("/login", s.login)
		api.GET("/users", s.listUsers)
		api.GET("/users/:username", s.getUser)
		api.GET("/conversations/:peer", s.authRequired(), s.history)
	}

	wsHandler := ws.NewHandler(s.engine, s.logger)
	router.GET("/ws", wsHandler.Handle())

	return router
}

type registerRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation"})
		return
	}

	ctx := c.Request.Context()
	_, err := s.registry.Register(ctx, req.Username, req.Password, req.PublicKey, req.PrivateKey)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation"})
		case errors.Is(err, common.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
		default:
			s.logger.Error(ctx, "registration failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}

	s.logger.Info(ctx, "registered", "username", users.NormalizeUsername(req.Username))
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation"})
		return
	}

	ctx := c.Request.Context()
	identity, privateKey, err := s.registry.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation"})
		case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrInvalidPassword):
			// one shape for both, to avoid leaking which field was wrong
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		case errors.Is(err, common.ErrDecryptionFailed):
			// the password hash verified but the blob would not open: either
			// a corrupted blob or a rotated vault secret
			s.logger.Error(ctx, "key vault inconsistency", "username", users.NormalizeUsername(req.Username))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "vault_failure"})
		default:
			s.logger.Error(ctx, "login failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}

	token, err := auth.GenerateToken(identity.Username, []byte(s.cfg.SecretKey), s.cfg.AccessTokenValidityDuration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	resp := gin.H{
		"username":     identity.Username,
		"public_key":   identity.PublicKey,
		"access_token": token,
	}
	if s.cfg.ReturnPrivateKeyOnLogin {
		resp["private_key"] = privateKey
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) listUsers(c *gin.Context) {
	entries, err := s.engine.Presence(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getUser(c *gin.Context) {
	identity, err := s.registry.Lookup(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":   identity.Username,
		"public_key": identity.PublicKey,
		"created_at": identity.CreatedAt,
	})
}

func (s *Server) history(c *gin.Context) {
	username := c.GetString(usernameContextKey)
	peer := c.Param("peer")

	messages, err := s.engine.History(c.Request.Context(), username, peer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

const usernameContextKey = "username"

// authRequired validates the Bearer token and stores the authenticated
// username on the request context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		username, err := auth.GetUsernameFromToken(token, []byte(s.cfg.SecretKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(usernameContextKey, username)
		c.Next()
	}
}
