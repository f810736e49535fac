// Package devserver is a local stand-in for the translation service: it
// splits submitted documents, translates their chunks with an llm.Translator,
// streams progress over WebSockets and keeps history and settings in SQLite.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/llm"
)

// CloseDocumentNotFound is the WebSocket close code sent for unknown documents.
const CloseDocumentNotFound = 4004

// Config wires the server to its storage and model.
type Config struct {
	Store        *Store
	Translator   llm.Translator
	Concurrency  int
	ContextChars int
	// Model is reported as the default llm_model setting.
	Model string
}

type Server struct {
	engine   *gin.Engine
	store    *Store
	hub      *hub
	worker   *worker
	defaults api.Settings
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config) *Server {
	if cfg.Translator == nil {
		cfg.Translator = llm.NewMock(time.Second)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.ContextChars < 0 {
		cfg.ContextChars = 0
	}
	defaults := api.DefaultSettings()
	if cfg.Model != "" {
		defaults.ModelName = cfg.Model
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := newHub()
	s := &Server{
		store:    cfg.Store,
		hub:      h,
		defaults: defaults,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.worker = &worker{
		store:        cfg.Store,
		hub:          h,
		translator:   cfg.Translator,
		concurrency:  cfg.Concurrency,
		contextChars: cfg.ContextChars,
		defaults:     defaults,
		running:      map[string]bool{},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization"},
	}))
	registerRoutes(engine, s)
	s.engine = engine
	return s
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("[devserver] listening on %s", addr)

	select {
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops running translations and disconnects viewers.
func (s *Server) Close() {
	s.cancel()
	s.hub.closeAll()
	s.worker.wait()
}

func registerRoutes(r *gin.Engine, s *Server) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "mdtranslate development backend running"})
	})
	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/translate", s.handleTranslate)
		apiGroup.GET("/documents", s.handleListDocuments)
		apiGroup.GET("/documents/:id", s.handleGetDocument)
		apiGroup.DELETE("/documents/:id", s.handleDeleteDocument)
		apiGroup.GET("/settings", s.handleGetSettings)
		apiGroup.POST("/settings", s.handleSaveSettings)
	}
	r.GET("/ws/translate/:id", s.handleStream)
}

func (s *Server) handleTranslate(c *gin.Context) {
	var req api.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()
	settings, _, err := s.store.EffectiveSettings(ctx, s.defaults)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	id := uuid.NewString()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Document " + id[:8]
	}
	direction := api.ParseDirection(string(req.Direction))
	chunks := Split(req.Content, settings.ChunkCount)
	if _, err := s.store.CreateDocument(ctx, id, title, req.Content, direction, chunks); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if chunks == nil {
		chunks = []api.WireChunk{}
	}
	log.Printf("[devserver] %s %q: %d chunks (%s)", id, title, len(chunks), direction)
	c.JSON(http.StatusOK, api.Manifest{DocumentID: id, Chunks: chunks})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.store.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.store.GetDocument(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Document not found"})
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	err := s.store.DeleteDocument(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Document not found"})
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	_, merged, err := s.store.EffectiveSettings(c.Request.Context(), s.defaults)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

func (s *Server) handleSaveSettings(c *gin.Context) {
	var payload struct {
		Settings map[string]json.RawMessage `json:"settings"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if payload.Settings == nil {
		respondMessage(c, http.StatusBadRequest, "settings object is required")
		return
	}
	if err := s.store.SaveSettings(c.Request.Context(), payload.Settings); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleStream attaches a viewer to a document and starts translating its
// open chunks. Events reach every viewer of the document.
func (s *Server) handleStream(c *gin.Context) {
	documentID := c.Param("id")
	connectionID := c.Query("connection_id")
	if connectionID == "" {
		connectionID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[devserver] upgrade %s: %v", documentID, err)
		return
	}

	if _, err := s.store.GetDocument(c.Request.Context(), documentID); err != nil {
		log.Printf("[devserver] stream %s: %v", documentID, err)
		msg := websocket.FormatCloseMessage(CloseDocumentNotFound, "Document not found")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	v := s.hub.join(documentID, connectionID, conn)
	defer s.hub.leave(v)
	s.worker.start(s.ctx, documentID)

	// Inbound frames are ignored; reading keeps control frames flowing and
	// notices the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[devserver] %s %s %d %s", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// String describes the server for startup logs.
func (s *Server) String() string {
	return fmt.Sprintf("devserver(translator=%s, model=%s)", s.worker.translator.Name(), s.defaults.ModelName)
}
