package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"htmlsearch/internal/rag/fetcher"
	"htmlsearch/internal/rag/schema"
)

// SearchService is the surface the handlers need from the service layer.
type SearchService interface {
	IndexURL(ctx context.Context, url string) (int, error)
	Search(ctx context.Context, url, query string) ([]*schema.Document, error)
}

// Handlers exposes the indexing and retrieval pipelines over HTTP.
type Handlers struct {
	service SearchService
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(service SearchService) *Handlers {
	return &Handlers{service: service}
}

type indexRequest struct {
	URL string `json:"url"`
}

type indexResponse struct {
	URL           string `json:"url"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type searchRequest struct {
	URL   string `json:"url"`
	Query string `json:"query"`
}

type searchResponse struct {
	Results []*schema.Document `json:"results"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// root answers a plain banner so a browser hit shows the service is up.
func (h *Handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "HTML Semantic Search running. Use POST /index or POST /search.",
	})
}

// index handles POST /index.
func (h *Handlers) index(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "Missing 'url'"})
		return
	}

	chunksIndexed, err := h.service.IndexURL(c.Request.Context(), req.URL)
	if err != nil {
		status, detail := mapError(err)
		c.JSON(status, errorResponse{Detail: detail})
		return
	}

	c.JSON(http.StatusOK, indexResponse{URL: req.URL, ChunksIndexed: chunksIndexed})
}

// search handles POST /search.
func (h *Handlers) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || req.Query == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "Both 'url' and 'query' are required."})
		return
	}

	results, err := h.service.Search(c.Request.Context(), req.URL, req.Query)
	if err != nil {
		status, detail := mapError(err)
		c.JSON(status, errorResponse{Detail: detail})
		return
	}

	if results == nil {
		results = []*schema.Document{}
	}
	c.JSON(http.StatusOK, searchResponse{Results: results})
}

// mapError translates pipeline failures to HTTP statuses: unreachable pages
// are the caller's problem (400), everything else is ours (500).
func mapError(err error) (int, string) {
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadRequest, fmt.Sprintf("Failed to fetch URL: %v", fetchErr.Err)
	}
	return http.StatusInternalServerError, err.Error()
}
