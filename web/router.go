package web

import (
	"fmt"
	"net/http"

	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/util"
	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"
)

// Routes builds the HTTP surface: one dereference route per object kind,
// the per-actor inbox, webfinger discovery and the RSS feed.
func (s *Server) Routes() *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	g.GET("/.well-known/webfinger", s.HandleWebFinger)

	if s.conf.Conf.WithRss {
		g.GET("/feed", func(c *gin.Context) {
			c.Header("Content-Type", "application/xml; charset=utf-8")
			rss, err := s.GetRSS()
			if err != nil {
				c.Render(404, render.String{Format: ""})
				return
			}
			c.Render(200, render.String{Format: rss})
		})
	}

	g.Static("/media/images", util.ResolveFilePathWithSubdir("media/images", ""))

	// Stricter rate limit for federation endpoints: 5 req/sec per IP
	fedLimiter := NewRateLimiter(rate.Limit(5), 10)
	fed := g.Group("/", RateLimitMiddleware(fedLimiter))

	read := fed.Group("/", s.ReadGate())

	for _, kind := range domain.ActorKinds() {
		kind := kind
		read.GET("/"+kind.Path()+"/:id", func(c *gin.Context) {
			s.HandleActor(c, kind)
		})
	}
	// Key dereference stays open even on closed platforms; partners need
	// it to verify our signatures before any follow exists.
	fed.GET("/"+domain.KindPublicKey.Path()+"/:id", s.HandlePublicKey)

	read.GET("/"+domain.KindInbox.Path()+"/:id", s.HandleInboxGet)
	read.GET("/"+domain.KindOutbox.Path()+"/:id", s.HandleOutboxGet)

	for _, kind := range domain.ActivityKinds() {
		kind := kind
		read.GET("/"+kind.Path()+"/:id", func(c *gin.Context) {
			s.HandleActivity(c, kind)
		})
	}

	eventKinds := append(domain.EventKinds(), domain.KindSubEvent)
	for _, kind := range eventKinds {
		kind := kind
		read.GET("/"+kind.Path()+"/:id", func(c *gin.Context) {
			s.HandleEvent(c, kind)
		})
	}

	read.GET("/"+domain.KindPlace.Path()+"/:id", s.HandlePlace)
	read.GET("/"+domain.KindAddress.Path()+"/:id", s.HandleAddress)
	read.GET("/"+domain.KindImage.Path()+"/:id", s.HandleImage)

	// Max 1MB request body size for inbound activities
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)
	fed.POST("/"+domain.KindInbox.Path()+"/:id", maxBodySize, s.HandleInboxPost)

	return g
}

// Serve runs the HTTP server until it fails.
func (s *Server) Serve() error {
	addr := fmt.Sprintf("%s:%d", s.conf.Conf.Host, s.conf.Conf.HttpPort)
	log.Infof("Starting federation server on %s", addr)
	srv := &http.Server{Addr: addr, Handler: s.Routes()}
	return srv.ListenAndServe()
}
