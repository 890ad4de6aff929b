package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HandleWebFinger answers discovery queries for the platform actor. The
// resource may be the acct form, the actor's IRI, or just the site
// origin; partners fall back to the origin when an exact page URL does
// not resolve.
func (s *Server) HandleWebFinger(c *gin.Context) {
	resource := c.Query("resource")
	if resource == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing resource parameter"})
		return
	}

	err, platform := s.db.ReadPlatformActor()
	if err != nil {
		abortWithError(c, err)
		return
	}

	base := s.conf.BaseURL()
	iri := platform.IRI(base)
	acct := fmt.Sprintf("acct:%s@%s", platform.Username, s.conf.Conf.Domain)

	if !s.matchesPlatform(resource, iri, acct) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.Header("Content-Type", "application/jrd+json; charset=utf-8")
	c.JSON(http.StatusOK, map[string]interface{}{
		"subject": acct,
		"links": []map[string]string{
			{
				"rel":  "self",
				"type": "application/activity+json",
				"href": iri,
			},
		},
	})
}

func (s *Server) matchesPlatform(resource, iri, acct string) bool {
	switch resource {
	case acct, iri, s.conf.BaseURL():
		return true
	}
	// Any URL under our origin resolves to the platform actor.
	return strings.HasPrefix(resource, s.conf.BaseURL()+"/")
}
