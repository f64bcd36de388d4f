package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mnemos-ai/mnemos/internal/config"
	"github.com/mnemos-ai/mnemos/internal/core/arbiter"
	"github.com/mnemos-ai/mnemos/internal/core/enrich"
	"github.com/mnemos-ai/mnemos/internal/core/inference"
	"github.com/mnemos-ai/mnemos/internal/core/model"
	"github.com/mnemos-ai/mnemos/internal/core/resolve"
	"github.com/mnemos-ai/mnemos/internal/core/retrieval"
	"github.com/mnemos-ai/mnemos/internal/driver"
	"github.com/mnemos-ai/mnemos/internal/llm"
)

// Server wires the resolution engine behind a thin HTTP surface. The
// handlers only translate JSON; every decision lives in the core
// packages.
type Server struct {
	Engine   *resolve.Engine
	Enricher *enrich.Enricher
	Scanner  *inference.Scanner
	Store    *driver.Store
	log      *zap.Logger
}

// New builds the full engine stack from config.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	d, err := driver.NewMemgraphDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, log)
	if err != nil {
		return nil, err
	}
	if err := d.BuildIndices(ctx); err != nil {
		return nil, err
	}
	store := driver.NewStore(d, log)

	llmClient, embedder, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		log.Warn("llm provider has no embedding capability, matching will be deterministic only",
			zap.String("provider", cfg.LLM.Provider))
	}

	retriever := retrieval.New(
		store,
		embedder,
		llm.NewSimpleLLMReranker(llmClient),
		cfg.Resolution.MaxCandidates,
		cfg.Resolution.EmbedTimeout(),
		log,
	)
	arb := arbiter.NewLLMArbiter(llmClient, cfg.Prompts, cfg.Resolution.ArbiterTimeout())

	return &Server{
		Engine:   resolve.NewEngine(retriever, arb, cfg.Resolution, log),
		Enricher: enrich.NewEnricher(store, arb, cfg.Resolution.EnrichmentWindow(), cfg.Resolution.ContextThreshold, log),
		Scanner:  inference.NewScanner(store, cfg.Resolution.InferenceThreshold, log),
		Store:    store,
		log:      log,
	}, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/v1")
	v1.POST("/resolve/task", s.resolveTask)
	v1.POST("/resolve/entity", s.resolveEntity)
	v1.POST("/resolve/commitment", s.resolveCommitment)
	v1.POST("/enrich/event", s.enrichEvent)
	v1.POST("/inference/scan", s.inferenceScan)

	return r
}

func (s *Server) resolveTask(c *gin.Context) {
	var req model.TaskCandidate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	decision, err := s.Engine.CheckTask(c.Request.Context(), req)
	if err != nil {
		s.log.Error("task resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (s *Server) resolveEntity(c *gin.Context) {
	var req model.EntityCandidate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	decision, err := s.Engine.CheckEntity(c.Request.Context(), req)
	if err != nil {
		s.log.Error("entity resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (s *Server) resolveCommitment(c *gin.Context) {
	var req model.CommitmentCandidate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	decision, err := s.Engine.CheckCommitment(c.Request.Context(), req)
	if err != nil {
		s.log.Error("commitment resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}
	c.JSON(http.StatusOK, decision)
}

// enrichEvent computes enrichment and applies it to the event's record.
// Enrichment itself cannot fail; only the write back can.
func (s *Server) enrichEvent(c *gin.Context) {
	var req model.AbstractEvent
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result := s.Enricher.Enrich(c.Request.Context(), req)
	if err := s.Store.ApplyEnrichment(c.Request.Context(), req.ID, result); err != nil {
		s.log.Error("failed to apply enrichment", zap.String("event_id", req.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply enrichment"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type scanRequest struct {
	Since  string `json:"since,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}

func (s *Server) inferenceScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	opts := inference.Options{Limit: req.Limit, DryRun: req.DryRun}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'since' timestamp"})
			return
		}
		opts.Since = since
	}

	report, err := s.Scanner.Scan(c.Request.Context(), opts)
	if err != nil {
		s.log.Error("inference scan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}
