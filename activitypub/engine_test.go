package activitypub

import (
	"testing"
	"time"

	"github.com/benkert/gutwerk/db"
	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/jsonld"
	"github.com/benkert/gutwerk/util"
)

// newTestEngine wires an engine around an in-memory store and a loader
// that serves the bundled contexts without touching the network.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	conf := &util.AppConfig{}
	conf.Conf.Domain = "local.example"
	conf.Conf.PlatformName = "Local Platform"

	loader, err := jsonld.NewDocumentLoader(nil)
	if err != nil {
		t.Fatalf("Failed to build document loader: %v", err)
	}

	return NewEngine(database, conf, jsonld.NewProcessor(loader))
}

// bootstrapPlatform creates the local Organization actor with a fresh
// keypair.
func bootstrapPlatform(t *testing.T, e *Engine) *domain.Actor {
	t.Helper()

	keys, err := util.GeneratePemKeypair()
	if err != nil {
		t.Fatalf("Failed to generate keypair: %v", err)
	}

	platform := &domain.Actor{
		Kind:          domain.KindOrganization,
		Username:      "gutwerk",
		Name:          e.conf.Conf.PlatformName,
		PublicKeyPem:  keys.Public,
		PrivateKeyPem: keys.Private,
		CreatedAt:     time.Now(),
	}
	if err := e.db.CreateActor(platform); err != nil {
		t.Fatalf("Failed to create platform actor: %v", err)
	}
	return platform
}
