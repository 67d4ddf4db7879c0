package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/sitetree/internal/service"
	"github.com/jmylchreest/sitetree/internal/store"
	"github.com/jmylchreest/sitetree/internal/version"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

type handler struct {
	svc TreeService
}

type rootQuery struct {
	RootURL string `form:"root_url" binding:"required"`
}

type viewQuery struct {
	RootURL               string `form:"root_url" binding:"required"`
	IncludeExtractedLinks *bool  `form:"include_extracted_links"`
	IncludeExternal       bool   `form:"include_external"`
	IncludeMedia          bool   `form:"include_media"`
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.String(),
	})
}

func (h *handler) build(c *gin.Context) {
	h.writeTree(c, h.svc.Build)
}

func (h *handler) merge(c *gin.Context) {
	h.writeTree(c, h.svc.Merge)
}

func (h *handler) writeTree(c *gin.Context, fn func(context.Context, service.Request) (*linktree.Tree, error)) {
	var req service.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tree, err := fn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *handler) list(c *gin.Context) {
	roots, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if roots == nil {
		roots = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"roots": roots,
		"total": len(roots),
	})
}

func (h *handler) view(c *gin.Context) {
	var q viewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "root_url is required and flags must be booleans")
		return
	}

	include := true
	if q.IncludeExtractedLinks != nil {
		include = *q.IncludeExtractedLinks
	}

	tree, err := h.svc.View(c.Request.Context(), q.RootURL, include, &linktree.LinkOptions{
		IncludeExternal: q.IncludeExternal,
		IncludeMedia:    q.IncludeMedia,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *handler) visited(c *gin.Context) {
	var q rootQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "root_url is required")
		return
	}

	visited, err := h.svc.Visited(c.Request.Context(), q.RootURL)
	if err != nil {
		respondError(c, err)
		return
	}
	if visited == nil {
		visited = []linktree.VisitedURL{}
	}
	c.JSON(http.StatusOK, gin.H{
		"visited": visited,
		"total":   len(visited),
	})
}

func (h *handler) delete(c *gin.Context) {
	var q rootQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "root_url is required")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), q.RootURL); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) categorize(c *gin.Context) {
	var req service.CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	skipped, err := h.svc.Categorize(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, skipped)
}

// respondError maps service errors onto status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "tree not found"})
	case errors.Is(err, service.ErrInvalidRequest):
		respondBadRequest(c, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	respondBadRequest(c, "invalid request body: "+err.Error())
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
