package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luigii1506/ohara-backend/internal/metrics"
	"github.com/Luigii1506/ohara-backend/internal/services"
)

type ProxyHandler struct {
	proxyService *services.ImageProxyService
}

func NewProxyHandler(proxy *services.ImageProxyService) *ProxyHandler {
	return &ProxyHandler{proxyService: proxy}
}

// ProxyImage relays a card image from an allow-listed CDN so the browser can
// rasterize it without cross-origin taint
func (h *ProxyHandler) ProxyImage(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		metrics.ProxyRequestsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}

	if !services.IsProxiedHost(rawURL) {
		metrics.ProxyRequestsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": "host not allowed"})
		return
	}

	data, contentType, err := h.proxyService.Fetch(c.Request.Context(), rawURL)
	if err != nil {
		metrics.ProxyRequestsTotal.WithLabelValues("upstream_error").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	metrics.ProxyRequestsTotal.WithLabelValues("ok").Inc()
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, data)
}
