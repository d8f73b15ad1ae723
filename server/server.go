package main

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

const identityKey = "identity"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type credentialsReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResp struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
	Guest    bool   `json:"guest"`
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, clientDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": hub.ClientCount(),
			"runs":    hub.runs.Count(),
		})
	})
	r.GET("/ws", hub.serveWS)

	api := r.Group("/api")
	api.GET("/catalog", func(c *gin.Context) {
		c.JSON(http.StatusOK, hub.catalog)
	})
	api.POST("/auth/register", func(c *gin.Context) {
		var req credentialsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		id, token, err := hub.auth.Register(req.Username, req.Password)
		respondToken(c, id, token, err)
	})
	api.POST("/auth/login", func(c *gin.Context) {
		var req credentialsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		id, token, err := hub.auth.Login(req.Username, req.Password, c.ClientIP())
		respondToken(c, id, token, err)
	})
	api.POST("/auth/guest", func(c *gin.Context) {
		id, token, err := hub.auth.Guest()
		respondToken(c, id, token, err)
	})

	authed := api.Group("", hub.requireAuth)
	authed.GET("/profile", hub.handleProfile)
	shop := authed.Group("/shop")
	shop.POST("/upgrade", hub.handleBuyUpgrade)
	shop.POST("/refund", hub.handleRefund)
	shop.POST("/ship-level", hub.handleShipLevel)
	shop.POST("/unlock", hub.handleUnlock)
	shop.POST("/select", hub.handleSelect)

	// Static client with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(clientDir))
	r.NoRoute(func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		// SPA: serve index.html for root and run-id paths
		if p == "/" || uuidPathRe.MatchString(p) {
			c.File(filepath.Join(clientDir, "index.html"))
			return
		}
		if _, err := os.Stat(filepath.Join(clientDir, filepath.FromSlash(p))); err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		fs.ServeHTTP(c.Writer, c.Request)
	})

	return r
}

func respondToken(c *gin.Context, id Identity, token string, err error) {
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tokenResp{Token: token, Username: id.Username, PlayerID: id.PlayerID, Guest: id.Guest})
}

// requireAuth validates the bearer token and stores the identity
func (h *Hub) requireAuth(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	id, err := h.auth.ValidateToken(token)
	if token == "" || err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.Set(identityKey, id)
	c.Next()
}

func identityFrom(c *gin.Context) Identity {
	id, _ := c.MustGet(identityKey).(Identity)
	return id
}

func (h *Hub) serveWS(c *gin.Context) {
	ip := extractIP(c.Request)
	if !h.CanAccept(ip) {
		c.String(http.StatusServiceUnavailable, "too many connections")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	h.TrackConnect(ip)

	client := NewClient(h, conn, ip)
	h.register <- client

	go client.WritePump()
	go client.ReadPump()
}
