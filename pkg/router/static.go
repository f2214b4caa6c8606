package router

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// notFound handles every unmatched path: unknown API routes get a JSON 404,
// everything else is served from the frontend build when one is configured
func (r *Router) notFound(frontendDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path

		if p == "/api" || strings.HasPrefix(p, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "API endpoint not found",
				"path":  p,
			})
			return
		}

		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		if frontendDir == "" {
			if p == "/" {
				c.JSON(http.StatusOK, gin.H{
					"service": r.Config.Observability.ServiceName,
					"version": r.Config.Server.Version,
					"mode":    r.Container.AgentMode,
					"uptime":  time.Since(startTime).Round(time.Second).String(),
					"docs":    "/api/docs/openapi.yaml",
				})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		if file, ok := resolveStatic(frontendDir, p); ok {
			c.File(file)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}

// resolveStatic maps a URL path onto the build directory, trying the exact
// file, then "<path>.html", then the SPA entry point
func resolveStatic(dir, urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	base := filepath.Join(dir, filepath.FromSlash(clean))

	candidates := []string{base, base + ".html", filepath.Join(dir, "index.html")}
	if clean == "/" {
		candidates = candidates[2:]
	}
	for _, f := range candidates {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			return f, true
		}
	}
	return "", false
}
