// Package web exposes the federation surface over HTTP: dereferenceable
// object URLs, per-actor inboxes, webfinger discovery and the RSS feed.
package web

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/benkert/gutwerk/activitypub"
	"github.com/benkert/gutwerk/db"
	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/jsonld"
	"github.com/benkert/gutwerk/util"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const contentTypeActivity = "application/activity+json; charset=utf-8"

type Server struct {
	engine *activitypub.Engine
	db     *db.DB
	conf   *util.AppConfig
}

func NewServer(engine *activitypub.Engine, conf *util.AppConfig) *Server {
	return &Server{engine: engine, db: engine.DB(), conf: conf}
}

// caller authenticates the request's HTTP signature. A missing or
// cryptographically invalid signature yields an anonymous caller;
// internal failures abort with 500.
func (s *Server) caller(c *gin.Context) (*domain.Actor, bool) {
	actor, err := s.engine.Authenticate(c.Request)
	if err != nil {
		log.Errorf("Web: authentication failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return nil, false
	}
	return actor, true
}

// ReadGate enforces the closed-platform read policy on dereference
// endpoints. Open platforms admit everyone.
func (s *Server) ReadGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.conf.Conf.Closed {
			c.Next()
			return
		}
		actor, ok := s.caller(c)
		if !ok {
			c.Abort()
			return
		}
		admitted, err := s.engine.ReadAdmitted(actor)
		if err != nil {
			log.Errorf("Web: read gate: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
			c.Abort()
			return
		}
		if !admitted {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// abortWithError maps domain errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	var parseErr *jsonld.ParseError
	var typeErr *jsonld.TypeMismatchError
	switch {
	case errors.As(err, &parseErr), errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, activitypub.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		log.Errorf("Web: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
