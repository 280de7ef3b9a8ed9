package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/types"
	"github.com/beaconhq/beacon/pkg/fault"
)

// maxDocumentBytes bounds an uploaded document body.
const maxDocumentBytes = 32 << 20

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Results []models.SearchHit `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ingestResponse struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}

// Server exposes the query and ingestion pipelines over HTTP.
type Server struct {
	ingestor types.Ingestor
	querier  types.Querier
	logger   *zap.Logger
	engine   *gin.Engine
}

func New(ingestor types.Ingestor, querier types.Querier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		ingestor: ingestor,
		querier:  querier,
		logger:   logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	engine.POST("/search", s.handleSearch)
	engine.POST("/documents/:id", s.handleIngest)

	s.engine = engine
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Query parameter is required"})
		return
	}

	hits, err := s.querier.Query(c.Request.Context(), req.Query)
	if err != nil {
		s.renderError(c, err)
		return
	}

	if hits == nil {
		// Zero matches is a success, distinct from any failure; always
		// render an array.
		hits = []models.SearchHit{}
	}
	c.JSON(http.StatusOK, searchResponse{Results: hits})
}

func (s *Server) handleIngest(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "document exceeds maximum size"})
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	doc := models.Document{
		ID:          c.Param("id"),
		ContentType: c.ContentType(),
		Data:        data,
	}

	recordID, err := s.ingestor.Ingest(c.Request.Context(), doc)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingestResponse{ID: recordID, Stage: "done"})
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := fault.HTTPStatus(err)
	msg := err.Error()
	if fault.IsKind(err, fault.EmptyQuery) {
		msg = "Query parameter is required"
	}
	c.JSON(status, errorResponse{Error: msg})
}
