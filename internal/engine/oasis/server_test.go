package oasis

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeCollection struct {
	info    GetCollectionResponse
	docs    map[string]Document
	indexed bool
}

// fakeServer speaks the OasisDB routes over an in-memory store.
type fakeServer struct {
	router *gin.Engine

	mu          sync.Mutex
	collections map[string]*fakeCollection
	failSearch  bool
	upserts     int
	// searchBody and upsertBody, when set, replace the success answers
	searchBody any
	upsertBody any
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &fakeServer{
		router:      gin.New(),
		collections: make(map[string]*fakeCollection),
	}
	s.setupRoutes()
	ts := httptest.NewServer(s.router)
	t.Cleanup(ts.Close)
	return s, ts
}

func (s *fakeServer) setupRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/v1/collections/:name", s.handleGetCollection())
	s.router.DELETE("/v1/collections/:name", s.handleDeleteCollection())
	s.router.POST("/v1/collections/:name/buildindex", s.handleBuildIndex())
	s.router.POST("/v1/collections", s.handleCreateCollection())
	s.router.GET("/v1/collections", s.handleListCollections())
	s.router.POST("/v1/collections/:name/vectors/search", s.handleSearchVectors())
	s.router.POST("/v1/collections/:name/documents/batchupsert", s.handleBatchUpsertDocuments())
}

func (s *fakeServer) handleCreateCollection() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCollectionRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Dimension == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.collections[req.Name]; ok {
			c.JSON(http.StatusConflict, gin.H{"error": "collection already exists"})
			return
		}
		s.collections[req.Name] = &fakeCollection{
			info: GetCollectionResponse{Name: req.Name, Dimension: req.Dimension, Parameters: req.Parameters},
			docs: make(map[string]Document),
		}
		c.JSON(http.StatusCreated, s.collections[req.Name].info)
	}
}

func (s *fakeServer) handleGetCollection() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		coll, ok := s.collections[c.Param("name")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		c.JSON(http.StatusOK, coll.info)
	}
}

func (s *fakeServer) handleDeleteCollection() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		name := c.Param("name")
		if _, ok := s.collections[name]; !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		delete(s.collections, name)
		c.Status(http.StatusNoContent)
	}
}

func (s *fakeServer) handleListCollections() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]GetCollectionResponse, 0, len(s.collections))
		for _, coll := range s.collections {
			out = append(out, coll.info)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		c.JSON(http.StatusOK, out)
	}
}

func (s *fakeServer) handleBuildIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BuildIndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		coll, ok := s.collections[c.Param("name")]
		if !ok || req.Field != coll.info.Parameters[paramVectorField] {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection or field not found"})
			return
		}
		coll.indexed = true
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *fakeServer) handleBatchUpsertDocuments() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchUpsertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		coll, ok := s.collections[c.Param("name")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		for _, d := range req.Documents {
			if uint32(len(d.Vector)) != coll.info.Dimension {
				c.JSON(http.StatusBadRequest, gin.H{"error": "dimension mismatch"})
				return
			}
		}
		for _, d := range req.Documents {
			coll.docs[d.ID] = d
		}
		s.upserts++
		if s.upsertBody != nil {
			c.JSON(http.StatusOK, s.upsertBody)
			return
		}
		c.Status(http.StatusOK)
	}
}

func (s *fakeServer) handleSearchVectors() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchVectorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failSearch {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "index loading"})
			return
		}
		coll, ok := s.collections[c.Param("name")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		if s.searchBody != nil {
			c.JSON(http.StatusOK, s.searchBody)
			return
		}
		type match struct {
			doc  Document
			dist float32
		}
		matches := make([]match, 0, len(coll.docs))
		for _, doc := range coll.docs {
			var d float32
			for i := range doc.Vector {
				diff := doc.Vector[i] - req.Vector[i]
				d += diff * diff
			}
			matches = append(matches, match{doc: doc, dist: d})
		}
		sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })
		if len(matches) > req.Limit {
			matches = matches[:req.Limit]
		}
		docs := make([]Document, len(matches))
		distances := make([]float32, len(matches))
		for i, m := range matches {
			docs[i], distances[i] = m.doc, m.dist
		}
		c.JSON(http.StatusOK, gin.H{
			"documents": docs,
			"distances": distances,
		})
	}
}

func (s *fakeServer) setFailSearch(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSearch = v
}

func (s *fakeServer) setSearchBody(body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchBody = body
}

func (s *fakeServer) setUpsertBody(body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertBody = body
}

func (s *fakeServer) upsertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}
