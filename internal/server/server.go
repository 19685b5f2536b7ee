// Package server exposes the assembly pipeline over HTTP for
// status-polling callers. Jobs run on worker goroutines; clients poll
// GET /jobs/:id for stage and percent.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reelforge/reelforge/internal/assemble"
	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/logging"
	"github.com/reelforge/reelforge/internal/types"
)

// RunFunc executes one job directory and reports progress through the
// callback. The pipeline provides the production implementation; tests
// inject fakes.
type RunFunc func(ctx context.Context, dir string, progress assemble.ProgressFunc) (types.AssemblyResult, error)

// Server is the HTTP front of the pipeline.
type Server struct {
	run   RunFunc
	store *job.Store
	log   *slog.Logger
}

func New(run RunFunc, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		run:   run,
		store: job.NewStore(),
		log:   logging.WithComponent(log, "server"),
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.POST("/jobs", s.handleSubmit)
	r.GET("/jobs", s.handleList)
	r.GET("/jobs/:id", s.handleGet)
	return r
}

// ListenAndServe runs the HTTP server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type submitRequest struct {
	JobDir string `json:"job_dir" binding:"required"`
}

// handleSubmit registers the job and starts a worker goroutine. The
// response carries only the id; clients poll for the rest.
func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_dir is required"})
		return
	}

	st := s.store.Create(req.JobDir)
	log := logging.WithJobID(s.log, st.ID)
	log.Info("job accepted", "dir", req.JobDir)

	go s.work(st.ID, req.JobDir, log)

	c.JSON(http.StatusAccepted, gin.H{"id": st.ID})
}

func (s *Server) handleGet(c *gin.Context) {
	st, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.store.List()})
}

// work runs one job to completion, mirroring stage snapshots into the
// store. It is the only writer for its entry.
func (s *Server) work(id, dir string, log *slog.Logger) {
	s.store.Update(id, func(j *job.Status) {
		j.State = job.StateRunning
	})

	progress := func(p assemble.Progress) {
		s.store.Update(id, func(j *job.Status) {
			j.Stage = p.Stage
			j.Percent = p.Percent
			j.Message = p.Message
		})
	}

	res, err := s.run(context.Background(), dir, progress)
	if err != nil {
		log.Error("job failed", "error", err)
		s.store.Update(id, func(j *job.Status) {
			j.State = job.StateFailed
			j.Error = err.Error()
		})
		return
	}

	log.Info("job done", "output", res.OutputPath, "validation_passed", res.Validation.Passed)
	s.store.Update(id, func(j *job.Status) {
		j.State = job.StateCompleted
		j.Result = &res
	})
}
