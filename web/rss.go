package web

import (
	"fmt"
	"time"

	"github.com/benkert/gutwerk/util"
	"github.com/gorilla/feeds"
)

// GetRSS renders the platform's local events as an RSS feed.
func (s *Server) GetRSS() (string, error) {
	err, events := s.db.ReadLocalEvents(50)
	if err != nil {
		return "", fmt.Errorf("GetRSS: %w", err)
	}

	base := s.conf.BaseURL()
	name := s.conf.Conf.PlatformName
	if name == "" {
		name = util.Name
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s Events", name),
		Link:        &feeds.Link{Href: base + "/feed"},
		Description: fmt.Sprintf("activities published by %s", name),
		Author:      &feeds.Author{Name: name},
		Created:     time.Now(),
	}

	var items []*feeds.Item
	for i := range *events {
		ev := (*events)[i]
		items = append(items, &feeds.Item{
			Id:      ev.IRI(base),
			Title:   util.NormalizeInput(ev.Name),
			Link:    &feeds.Link{Href: ev.IRI(base)},
			Content: util.NormalizeInput(ev.Description),
			Author:  &feeds.Author{Name: name},
			Created: ev.CreatedAt,
		})
	}
	feed.Items = items

	return feed.ToRss()
}
