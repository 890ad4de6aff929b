package web

import (
	"net/http"
	"strconv"

	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/jsonld"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return id, true
}

// HandleActor dereferences a local actor of the given kind.
func (s *Server) HandleActor(c *gin.Context, kind domain.Kind) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err, actor := s.db.ReadActorById(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if actor.Kind != kind || !actor.ID.IsLocal() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.Header("Content-Type", contentTypeActivity)
	c.JSON(http.StatusOK, s.engine.ActorDocument(actor))
}

// HandlePublicKey dereferences an actor's public key on its own URL, for
// signature verification by partners.
func (s *Server) HandlePublicKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err, actor := s.db.ReadActorById(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !actor.ID.IsLocal() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	base := s.conf.BaseURL()
	c.Header("Content-Type", contentTypeActivity)
	c.JSON(http.StatusOK, map[string]interface{}{
		"@context":     domain.Contexts(),
		"id":           actor.KeyID(base),
		"type":         string(domain.KindPublicKey),
		"owner":        actor.IRI(base),
		"publicKeyPem": actor.PublicKeyPem,
	})
}

// HandleInboxGet serves an actor's inbox collection. Inbox contents are
// private; partners only learn the collection exists.
func (s *Server) HandleInboxGet(c *gin.Context) {
	s.handleCollection(c, domain.KindInbox, nil)
}

// HandleOutboxGet serves an actor's outbox: the platform's own published
// activities, newest first.
func (s *Server) HandleOutboxGet(c *gin.Context) {
	err, activities := s.db.ReadLocalActivitiesByKind(domain.KindPublish, 50)
	if err != nil {
		abortWithError(c, err)
		return
	}
	items := make([]interface{}, 0, len(*activities))
	for i := range *activities {
		act := (*activities)[i]
		items = append(items, s.engine.ActivityDocument(&act, act.ObjectIRI))
	}
	s.handleCollection(c, domain.KindOutbox, items)
}

func (s *Server) handleCollection(c *gin.Context, kind domain.Kind, items []interface{}) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err, actor := s.db.ReadActorById(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !actor.ID.IsLocal() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if items == nil {
		items = []interface{}{}
	}
	c.Header("Content-Type", contentTypeActivity)
	c.JSON(http.StatusOK, map[string]interface{}{
		"@context":     domain.Contexts(),
		"id":           domain.LocalID(id).IRI(s.conf.BaseURL(), kind),
		"type":         "OrderedCollection",
		"totalItems":   len(items),
		"orderedItems": items,
	})
}

// HandleActivity dereferences a local activity of the given kind.
func (s *Server) HandleActivity(c *gin.Context, kind domain.Kind) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err, act := s.db.ReadActivityById(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if act.Kind != kind || !act.Local {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.Header("Content-Type", contentTypeActivity)
	c.JSON(http.StatusOK, s.engine.ActivityDocument(act, act.ObjectIRI))
}

// HandleEvent dereferences a local event of the given kind, children
// inlined for multi-slot events.
func (s *Server) HandleEvent(c *gin.Context, kind domain.Kind) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err, ev := s.readLocalEvent(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if ev == nil || eventPathKind(ev) != kind {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	var children []domain.Event
	if !ev.IsSlot() {
		err, cs := s.db.ReadChildEvents(ev.ID.LocalID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		children = *cs
	}

	c.Header("Content-Type", contentTypeActivity)
	c.JSON(http.StatusOK, s.engine.EventDocument(ev, children))
}

// eventPathKind returns the kind whose path segment the event is served
// under; slot children live under the sub-event path.
func eventPathKind(ev *domain.Event) domain.Kind {
	if ev.IsSlot() {
		return domain.KindSubEvent
	}
	return ev.Kind
}

func (s *Server) readLocalEvent(id int64) (error, *domain.Event) {
	err, ev := s.db.ReadEventById(id)
	if err != nil {
		return err, nil
	}
	if !ev.ID.IsLocal() {
		return nil, nil
	}
	return nil, ev
}

// HandlePlace serves the location of the event with the given id as a
// standalone object. Places have no storage of their own.
func (s *Server) HandlePlace(c *gin.Context) {
	s.handleEventPart(c, func(ev *domain.Event) map[string]interface{} {
		if ev.Place == nil {
			return nil
		}
		doc := map[string]interface{}{
			"@context": domain.Contexts(),
			"type":     string(domain.KindPlace),
			"name":     ev.Place.Name,
		}
		if addr := addressNode(ev); addr != nil {
			doc["address"] = addr
		}
		return doc
	})
}

// HandleAddress serves the postal address of the event with the given id.
func (s *Server) HandleAddress(c *gin.Context) {
	s.handleEventPart(c, func(ev *domain.Event) map[string]interface{} {
		addr := addressNode(ev)
		if addr == nil {
			return nil
		}
		addr["@context"] = domain.Contexts()
		return addr
	})
}

// HandleImage serves the image reference of the event with the given id.
func (s *Server) HandleImage(c *gin.Context) {
	s.handleEventPart(c, func(ev *domain.Event) map[string]interface{} {
		if ev.ImageURL == "" {
			return nil
		}
		return map[string]interface{}{
			"@context": domain.Contexts(),
			"type":     string(domain.KindImage),
			"url":      ev.ImageURL,
		}
	})
}

func (s *Server) handleEventPart(c *gin.Context, part func(*domain.Event) map[string]interface{}) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err, ev := s.readLocalEvent(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var doc map[string]interface{}
	if ev != nil {
		doc = part(ev)
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.Header("Content-Type", contentTypeActivity)
	c.JSON(http.StatusOK, doc)
}

func addressNode(ev *domain.Event) map[string]interface{} {
	if ev.Place == nil || ev.Place.Address == nil {
		return nil
	}
	a := ev.Place.Address
	return map[string]interface{}{
		"type":    string(domain.KindAddress),
		"street":  a.Street,
		"zipcode": a.Zipcode,
		"city":    a.City,
		"country": a.Country,
	}
}

// HandleInboxPost receives a federated activity addressed to the actor
// with the given id.
func (s *Server) HandleInboxPost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err, actor := s.db.ReadActorById(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !actor.ID.IsLocal() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	caller, ok := s.caller(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		log.Warnf("Inbox: failed to read body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}
	raw, err := jsonld.ParseBytes(body)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if err := s.engine.HandleInbox(caller, raw, body); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
