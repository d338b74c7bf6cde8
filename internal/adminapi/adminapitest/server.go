// Package adminapitest provides an in-memory admin API and object store for tests
package adminapitest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tene/catalog-import/internal/adminapi"
	"github.com/tene/catalog-import/internal/types"
)

// FirstCategoryID is the id the server gives its first category; legacy
// fixtures use small ids so the two never collide.
const FirstCategoryID = 1000

// Category is a category as stored by the fake API
type Category struct {
	ID int32
	types.CategoryPayload
}

// Upload is an object written to a presigned URL
type Upload struct {
	ContentType   string
	Authorization string
	Data          []byte
}

// Server fakes the admin API. Hooks may be set before the first request.
type Server struct {
	*httptest.Server

	Token string

	// FailCategory returns a non-zero status to reject a create call
	FailCategory func(p types.CategoryPayload) int
	// FailUpload returns a non-zero status to reject a presigned PUT
	FailUpload func(key string) int
	// Delay is added to every request to make overlap observable
	Delay time.Duration

	mu             sync.Mutex
	nextID         int32
	categories     map[int32]Category
	order          []int32
	categoryImages map[int32]string
	productImages  map[int32][]adminapi.ImageRequest
	uploads        map[string]Upload
	requests       map[string]int
	inFlight       int
	maxInFlight    int
}

// NewServer starts a fake server; call Close when done
func NewServer(token string) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		Token:          token,
		nextID:         FirstCategoryID,
		categories:     make(map[int32]Category),
		categoryImages: make(map[int32]string),
		productImages:  make(map[int32][]adminapi.ImageRequest),
		uploads:        make(map[string]Upload),
		requests:       make(map[string]int),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.track)

	admin := router.Group("/admin", s.requireToken)
	admin.POST("/categories", s.createCategory)
	admin.PUT("/categories/:id/image", s.categoryImage)
	admin.PUT("/products/:id/images", s.productImagesHandler)

	router.PUT("/storage/*key", s.putObject)

	s.Server = httptest.NewServer(router)
	return s
}

func (s *Server) track(c *gin.Context) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.requests[c.Request.Method+" "+c.FullPath()]++
	s.mu.Unlock()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	c.Next()

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *Server) requireToken(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+s.Token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) createCategory(c *gin.Context) {
	var p types.CategoryPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.FailCategory != nil {
		if code := s.FailCategory(p); code != 0 {
			c.String(code, "rejected %s", p.Name)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ParentID != nil {
		if _, ok := s.categories[*p.ParentID]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("parent %d not found", *p.ParentID)})
			return
		}
	}
	for _, existing := range s.categories {
		if existing.Slug == p.Slug {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already exists"})
			return
		}
	}

	id := s.nextID
	s.nextID++
	s.categories[id] = Category{ID: id, CategoryPayload: p}
	s.order = append(s.order, id)

	c.JSON(http.StatusOK, gin.H{"id": id, "name": p.Name, "slug": p.Slug})
}

func (s *Server) categoryImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		ContentType string `json:"content_type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	_, exists := s.categories[id]
	if exists {
		s.categoryImages[id] = body.ContentType
	}
	s.mu.Unlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": fmt.Sprintf("%s/storage/categories/%d", s.URL, id)})
}

func (s *Server) productImagesHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Images []adminapi.ImageRequest `json:"images"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.productImages[id] = append(s.productImages[id], body.Images...)
	s.mu.Unlock()

	images := make([]gin.H, len(body.Images))
	for i := range body.Images {
		images[i] = gin.H{"upload_url": fmt.Sprintf("%s/storage/products/%d/%d", s.URL, id, i)}
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (s *Server) putObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if s.FailUpload != nil {
		if code := s.FailUpload(key); code != 0 {
			c.String(code, "upload rejected")
			return
		}
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.uploads[key] = Upload{
		ContentType:   c.GetHeader("Content-Type"),
		Authorization: c.GetHeader("Authorization"),
		Data:          data,
	}
	s.mu.Unlock()

	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return int32(id), true
}

// Categories returns created categories in creation order
func (s *Server) Categories() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Category, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.categories[id])
	}
	return out
}

// CategoryByName returns a created category by name
func (s *Server) CategoryByName(name string) (Category, bool) {
	for _, c := range s.Categories() {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryImage returns the content type requested for a category image
func (s *Server) CategoryImage(id int32) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.categoryImages[id]
	return ct, ok
}

// ProductImages returns the image requests received for a product
func (s *Server) ProductImages(id int32) []adminapi.ImageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]adminapi.ImageRequest(nil), s.productImages[id]...)
}

// Upload returns an object written to the store, keyed like "products/5/0"
func (s *Server) Upload(key string) (Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[key]
	return u, ok
}

// Uploads returns the number of stored objects
func (s *Server) Uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// Requests returns how often a route was hit, e.g. "PUT /admin/products/:id/images"
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// MaxInFlight returns the highest number of concurrent requests observed
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}
