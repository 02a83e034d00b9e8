package dashboard

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	router.GET("/", handleIndex())

	api := router.Group("/api")
	api.GET("/status", handleStatus(opts))
	api.GET("/leads", handleLeads(opts))
	api.GET("/attention", handleAttention(opts))
	api.GET("/events", handleSSE(opts))
}

func handleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"page": "dashboard",
		})
	}
}

func handleStatus(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := StatusSummary(opts.DB, opts.Queue)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		summary.Online = opts.Online != nil && opts.Online.IsOnline()
		c.JSON(http.StatusOK, summary)
	}
}

func handleLeads(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		leads, err := LeadList(opts.DB, LeadFilter{
			Status:   c.Query("status"),
			Archived: c.Query("archived") == "true",
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leads": leads})
	}
}

func handleAttention(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := AttentionList(opts.Queue)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"mutations": rows})
	}
}
