package api

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/web"
)

// serveIndexWithBasePath serves index.html with the base path injected
func (s *RESTServer) serveIndexWithBasePath(basePath string, fsys fs.FS) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := fs.ReadFile(fsys, web.IndexFile)
		if err != nil {
			logger.Errorf("Failed to read %s: %v", web.IndexFile, err)
			c.Status(http.StatusNotFound)
			return
		}
		injectedScript := fmt.Sprintf(`<script>window.__NEONCLOCK_BASE_PATH__=%q;</script></head>`, basePath)
		html := strings.Replace(string(data), "</head>", injectedScript, 1)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	}
}

// setupWebAssets serves the clock face bundle under the base path, with
// unknown non-API paths falling back to index.html. Without a bundle the
// server is API-only.
func (s *RESTServer) setupWebAssets(base *gin.RouterGroup, basePath, webDir string) {
	fsys, source := web.Assets(webDir)
	if fsys == nil {
		logger.Infof("No clock face bundle found - running in API-only mode")
		s.router.NoRoute(func(c *gin.Context) {
			respondNotFound(c, "Endpoint")
		})
		return
	}
	logger.Infof("Serving clock face bundle from %s", source)

	indexHandler := s.serveIndexWithBasePath(basePath, fsys)
	files := http.FS(fsys)
	prefix := strings.TrimSuffix(basePath, "/")

	base.GET("/", indexHandler)
	base.GET("/"+web.IndexFile, indexHandler)

	s.router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, prefix+"/") {
			c.Redirect(http.StatusMovedPermanently, basePath)
			return
		}
		name := strings.TrimPrefix(path, prefix+"/")
		if name == "api" || strings.HasPrefix(name, "api/") {
			respondNotFound(c, "Endpoint")
			return
		}
		if web.IsFile(fsys, name) {
			c.FileFromFS(name, files)
			return
		}
		indexHandler(c)
	})
}
