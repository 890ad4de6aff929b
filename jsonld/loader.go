package jsonld

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/piprate/json-gold/ld"

	"github.com/benkert/gutwerk/domain"
)

//go:embed contexts/activitystreams.json
var activityStreamsContext []byte

//go:embed contexts/security.json
var securityContext []byte

//go:embed contexts/gutwerk.json
var gutwerkContext []byte

// remoteContextCap bounds the cache of context documents fetched over
// the network. Entries live for the process lifetime; contexts are
// immutable so there is no invalidation.
const remoteContextCap = 1000

// DocumentLoader resolves @context URLs. The three bundled vocabularies
// are served from a local registry; unknown contexts fall back to a
// network fetch through a bounded LRU cache.
type DocumentLoader struct {
	registry map[string]*ld.RemoteDocument
	cache    *lru.Cache[string, *ld.RemoteDocument]
	fallback ld.DocumentLoader
}

// NewDocumentLoader builds a loader around the given HTTP client. A nil
// client uses http.DefaultClient for the network fallback.
func NewDocumentLoader(client *http.Client) (*DocumentLoader, error) {
	registry := make(map[string]*ld.RemoteDocument, 3)
	for url, raw := range map[string][]byte{
		domain.ContextActivityStreams: activityStreamsContext,
		domain.ContextSecurity:        securityContext,
		domain.ContextGutwerk:         gutwerkContext,
	} {
		doc, err := ld.DocumentFromReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse bundled context %s: %w", url, err)
		}
		registry[url] = &ld.RemoteDocument{DocumentURL: url, Document: doc}
	}

	cache, err := lru.New[string, *ld.RemoteDocument](remoteContextCap)
	if err != nil {
		return nil, fmt.Errorf("failed to build context cache: %w", err)
	}

	return &DocumentLoader{
		registry: registry,
		cache:    cache,
		fallback: ld.NewDefaultDocumentLoader(client),
	}, nil
}

// LoadDocument implements ld.DocumentLoader.
func (l *DocumentLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	if doc, ok := l.registry[u]; ok {
		return doc, nil
	}

	if doc, ok := l.cache.Get(u); ok {
		return doc, nil
	}

	log.Debugf("Fetching remote context %s", u)
	doc, err := l.fallback.LoadDocument(u)
	if err != nil {
		return nil, err
	}

	l.cache.Add(u, doc)
	return doc, nil
}
