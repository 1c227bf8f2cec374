// Package server exposes the engine over HTTP: a streaming chat endpoint,
// turn history, and a health probe.
package server

// #region imports
import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/quarryhq/groundctl/internal/audit"
	"github.com/quarryhq/groundctl/internal/engine"
	"github.com/quarryhq/groundctl/internal/query"
	"github.com/quarryhq/groundctl/internal/stream"
)

// #endregion

const timeLayout = time.RFC3339

// #region request

// ChatRequest is the POST /v1/chat body. Message is accepted as an alias
// for Query for older clients; Query wins when both are set.
type ChatRequest struct {
	Query          string         `json:"query"`
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id"`
	GroupID        string         `json:"group_id"`
	TenantID       string         `json:"tenant_id"`
	TwinID         string         `json:"twin_id"`
	Mode           string         `json:"mode"`
	Metadata       map[string]any `json:"metadata"`
}

func (r ChatRequest) text() string {
	if r.Query != "" {
		return r.Query
	}
	return r.Message
}

func (r ChatRequest) validate() string {
	if r.text() == "" {
		return "query is required"
	}
	if r.ConversationID == "" {
		return "conversation_id is required"
	}
	if r.TenantID == "" {
		return "tenant_id is required"
	}
	switch query.Mode(r.Mode) {
	case query.ModeOwner, query.ModePublic, "":
	default:
		return "mode must be owner or public"
	}
	return ""
}

// #endregion request

// #region server

// Server binds the HTTP routes to the engine.
type Server struct {
	engine *engine.Engine
	store  *audit.Store
	log    *log.Logger
}

// New creates a server.
func New(eng *engine.Engine, store *audit.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{engine: eng, store: store, log: logger.WithPrefix("server")}
}

// Router builds the gin router with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	v1 := router.Group("/v1")
	v1.POST("/chat", s.handleChat)
	v1.GET("/turns/:conversation_id", s.handleTurns)

	return router
}

// #endregion server

// #region chat

// handleChat streams one turn as NDJSON events. Malformed requests still
// produce a well-formed stream whose terminal event is an error.
func (s *Server) handleChat(c *gin.Context) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")

	em := stream.NewEmitter(c.Writer, func() { c.Writer.Flush() })

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		_ = em.Error("malformed request body")
		return
	}
	if msg := req.validate(); msg != "" {
		c.Status(http.StatusBadRequest)
		_ = em.Error(msg)
		return
	}

	mode := query.Mode(req.Mode)
	if mode == "" {
		mode = query.ModeOwner
	}
	q := query.Query{
		Text:           req.text(),
		ConversationID: req.ConversationID,
		GroupID:        req.GroupID,
		TenantID:       req.TenantID,
		TwinID:         req.TwinID,
		Mode:           mode,
		Metadata:       req.Metadata,
	}

	if _, err := s.engine.RunTurn(c.Request.Context(), q, em); err != nil {
		s.log.Error("turn failed", "conversation_id", q.ConversationID, "error", err)
		if !em.Closed() {
			_ = em.Error("internal error")
		}
	}
}

// #endregion chat

// #region turns

type turnView struct {
	TurnID    string `json:"turn_id"`
	QueryText string `json:"query_text"`
	Mode      string `json:"mode"`
	Routing   any    `json:"routing"`
	CreatedAt string `json:"created_at"`
}

// handleTurns returns the recent turns of a conversation, newest first.
func (s *Server) handleTurns(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	turns, err := s.store.ListTurns(conversationID, 50)
	if err != nil {
		s.log.Error("list turns failed", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load turns"})
		return
	}

	views := make([]turnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, turnView{
			TurnID:    t.TurnID,
			QueryText: t.QueryText,
			Mode:      t.Mode,
			Routing:   json.RawMessage(t.RoutingJSON),
			CreatedAt: t.CreatedAt.UTC().Format(timeLayout),
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "turns": views})
}

// #endregion turns

// #region health

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// #endregion health
