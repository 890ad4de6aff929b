package activitypub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// WebFingerResponse is the JRD document returned by a discovery query.
type WebFingerResponse struct {
	Subject string          `json:"subject"`
	Links   []WebFingerLink `json:"links"`
}

type WebFingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type"`
	Href string `json:"href"`
}

// Discover resolves a human-entered partner URL to the partner's
// canonical actor IRI. The exact URL is tried as the webfinger resource
// first; if that query fails, the URL's origin is tried instead.
func (e *Engine) Discover(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid partner URL %q", rawURL)
	}
	origin := parsed.Scheme + "://" + parsed.Host

	actorIRI, err := e.queryWebFinger(origin, rawURL)
	if err == nil {
		return actorIRI, nil
	}
	if rawURL == origin {
		return "", err
	}

	return e.queryWebFinger(origin, origin)
}

func (e *Engine) queryWebFinger(origin, resource string) (string, error) {
	endpoint := origin + "/.well-known/webfinger?resource=" + url.QueryEscape(resource)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/jrd+json")
	req.Header.Set("User-Agent", e.userAgent())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webfinger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("webfinger query for %s returned status: %d", resource, resp.StatusCode)
	}

	var jrd WebFingerResponse
	if err := json.NewDecoder(resp.Body).Decode(&jrd); err != nil {
		return "", fmt.Errorf("failed to parse webfinger response: %w", err)
	}

	for _, link := range jrd.Links {
		if link.Rel != "self" {
			continue
		}
		if link.Type == "application/ld+json" || link.Type == "application/activity+json" {
			if link.Href != "" {
				return link.Href, nil
			}
		}
	}

	return "", fmt.Errorf("webfinger response for %s has no actor link", resource)
}
