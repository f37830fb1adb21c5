package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkline-labs/inkline/internal/auth"
	"github.com/inkline-labs/inkline/internal/blame"
	"github.com/inkline-labs/inkline/internal/notes"
	"github.com/inkline-labs/inkline/internal/realtime"
	"github.com/inkline-labs/inkline/internal/users"
)

const (
	userIDContextKey = "inkline_user_id"
	heartbeatPeriod  = 25 * time.Second
)

var (
	errMissingTokenManager = errors.New("token manager dependency required")
	errMissingNotesService = errors.New("notes service dependency required")
	errMissingBlameStore   = errors.New("blame store dependency required")
	errMissingDispatcher   = errors.New("realtime dispatcher dependency required")
)

// BearerTokenManager issues and validates API bearer tokens.
type BearerTokenManager interface {
	IssueToken(userID, email, displayName string) (string, int64, error)
	ValidateToken(token string) (auth.SessionClaims, error)
}

// Dependencies wires the HTTP surface to the underlying services.
type Dependencies struct {
	TokenManager BearerTokenManager
	NotesService *notes.Service
	BlameStore   *blame.Store
	Realtime     *realtime.Dispatcher
	UsersService *users.Service
	Logger       *zap.Logger
}

// NewHTTPHandler builds the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}
	if deps.BlameStore == nil {
		return nil, errMissingBlameStore
	}
	if deps.Realtime == nil {
		return nil, errMissingDispatcher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:     deps.TokenManager,
		notes:      deps.NotesService,
		blameStore: deps.BlameStore,
		realtime:   deps.Realtime,
		users:      deps.UsersService,
		logger:     logger,
	}

	router.POST("/auth/token", handler.handleIssueToken)

	protected := router.Group("/workspaces/:workspace")
	protected.Use(handler.authorizeRequest)
	protected.POST("/notes", handler.handleCreateNote)
	protected.PUT("/notes/:note", handler.handleSaveNote)
	protected.GET("/notes/:note/blame", handler.handleGetBlame)
	protected.GET("/notes/:note/revisions", handler.handleListRevisions)
	protected.GET("/events", handler.handleEvents)

	return router, nil
}

type httpHandler struct {
	tokens     BearerTokenManager
	notes      *notes.Service
	blameStore *blame.Store
	realtime   *realtime.Dispatcher
	users      *users.Service
	logger     *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	claims, err := h.tokens.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(userIDContextKey, claims.Subject)
	c.Next()
}

func (h *httpHandler) currentUserID(c *gin.Context) string {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return ""
	}
	userID, ok := value.(string)
	if !ok {
		return ""
	}
	return userID
}

type tokenRequestPayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleIssueToken(c *gin.Context) {
	var request tokenRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(request.UserID, request.Email, request.DisplayName)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	if h.users != nil {
		if err := h.users.EnsureProfile(c.Request.Context(), request.UserID, request.Email, request.DisplayName); err != nil {
			h.logger.Warn("failed to record author profile",
				zap.String("user_id", request.UserID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

type notePayload struct {
	NoteID      string    `json:"note_id"`
	WorkspaceID string    `json:"workspace_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	workspaceID, err := notes.NewWorkspaceID(c.Param("workspace"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_workspace"})
		return
	}

	note, err := h.notes.Create(c.Request.Context(), workspaceID)
	if err != nil {
		h.logger.Error("note creation failed",
			zap.String("workspace_id", workspaceID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, notePayload{
		NoteID:      note.PublicID,
		WorkspaceID: note.WorkspaceID,
		Content:     note.Content,
		CreatedAt:   note.CreatedAt,
		UpdatedAt:   note.UpdatedAt,
	})
}

type saveRequestPayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleSaveNote(c *gin.Context) {
	workspaceID, publicID, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	var request saveRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.Resolve(c.Request.Context(), workspaceID, publicID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	includeBlame := c.Query("blame") == "1" || c.Query("blame") == "true"
	result, err := h.blameStore.Save(c.Request.Context(), blame.SaveRequest{
		NoteID:       note.ID,
		NotePublicID: note.PublicID,
		WorkspaceID:  workspaceID.String(),
		Content:      request.Content,
		AuthorUserID: h.currentUserID(c),
		IncludeBlame: includeBlame,
	})
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleGetBlame(c *gin.Context) {
	workspaceID, publicID, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	note, err := h.notes.Resolve(c.Request.Context(), workspaceID, publicID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	views, err := h.blameStore.ListBlame(c.Request.Context(), note.ID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"note_id": note.PublicID, "blame": views})
}

func (h *httpHandler) handleListRevisions(c *gin.Context) {
	workspaceID, publicID, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	note, err := h.notes.Resolve(c.Request.Context(), workspaceID, publicID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	revisions, err := h.blameStore.ListRevisions(c.Request.Context(), note.ID)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"note_id": note.PublicID, "revisions": revisions})
}

func (h *httpHandler) handleEvents(c *gin.Context) {
	workspaceID, err := notes.NewWorkspaceID(c.Param("workspace"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_workspace"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	stream, cleanup := h.realtime.Subscribe(c.Request.Context(), workspaceID.String())
	defer cleanup()

	heartbeat := time.NewTicker(heartbeatPeriod)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Unix())
			return true
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.Event.Type, gin.H{
				"workspace_id": message.Event.WorkspaceID,
				"note_id":      message.Event.NoteID,
				"timestamp":    message.Timestamp.UTC().Unix(),
			})
			return true
		}
	})
}

func (h *httpHandler) pathIdentifiers(c *gin.Context) (notes.WorkspaceID, notes.PublicID, bool) {
	workspaceID, err := notes.NewWorkspaceID(c.Param("workspace"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_workspace"})
		return "", "", false
	}
	publicID, err := notes.NewPublicID(c.Param("note"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return "", "", false
	}
	return workspaceID, publicID, true
}

// respondLookupError maps engine failures to status codes. A workspace
// mismatch answers exactly like a missing note so cross-workspace existence
// cannot be probed.
func (h *httpHandler) respondLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound),
		errors.Is(err, blame.ErrNoteNotFound),
		errors.Is(err, blame.ErrNoteNotInWorkspace):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
