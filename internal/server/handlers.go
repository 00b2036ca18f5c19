package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/lens/internal/source"
)

// resourceRoute turns the resource prefix into a gin route pattern.
func resourceRoute(prefix string) string {
	if prefix == "" {
		prefix = source.DefaultResourcePrefix
	}
	return "/" + strings.Trim(prefix, "/") + "/:root/*path"
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"roots":    len(s.source.Roots()),
		"diagrams": s.diagrams != nil,
		"watch":    s.config.Source.Watch,
	})
}

func (s *Server) listDocuments(c *gin.Context) {
	entries, err := s.source.List(c.Request.Context(), c.Query("pattern"))
	if err != nil {
		if errors.Is(err, source.ErrInvalidPattern) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("Failed to list documents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": entries, "count": len(entries)})
}

// serveResource serves a file referenced relative to a document. Requests
// that leave their root are answered as missing.
func (s *Server) serveResource(c *gin.Context) {
	root, err := strconv.Atoi(c.Param("root"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	rel := strings.TrimPrefix(c.Param("path"), "/")

	path, err := s.source.Resolve(root, rel)
	if err != nil {
		if !errors.Is(err, source.ErrOutsideRoots) && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to resolve resource", zap.String("path", rel), zap.Error(err))
		}
		c.Status(http.StatusNotFound)
		return
	}

	s.gzip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := os.Open(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})).ServeHTTP(c.Writer, c.Request)
}
