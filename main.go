package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benkert/gutwerk/activitypub"
	"github.com/benkert/gutwerk/db"
	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/jsonld"
	"github.com/benkert/gutwerk/mapper"
	"github.com/benkert/gutwerk/util"
	"github.com/benkert/gutwerk/web"
	"github.com/charmbracelet/log"
)

const dbFileName = "gutwerk.db"

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatal(err)
	}
	if conf.Conf.Domain == "" {
		log.Fatal("No platform domain configured; set conf.domain in config.yaml or GUTWERK_DOMAIN")
	}

	log.Infof("Starting %s", util.GetNameAndVersion())

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	database, err := db.Open(util.ResolveFilePath(dbFileName))
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := bootstrapPlatformActor(database, conf); err != nil {
		log.Fatal(err)
	}

	loader, err := jsonld.NewDocumentLoader(&http.Client{Timeout: 30 * time.Second})
	if err != nil {
		log.Fatal(err)
	}

	engine := activitypub.NewEngine(database, conf, jsonld.NewProcessor(loader))
	engine.SetAdopter(mapper.New(database, conf))
	engine.StartDeliveryWorker()

	server := web.NewServer(engine, conf)
	if err := server.Serve(); err != nil {
		log.Fatal(err)
	}
}

// bootstrapPlatformActor ensures the platform's Organization actor
// exists. The keypair is generated exactly once, on first startup.
func bootstrapPlatformActor(database *db.DB, conf *util.AppConfig) error {
	err, _ := database.ReadPlatformActor()
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if conf.Conf.PlatformName == "" {
		return errors.New("no platform name configured; set conf.platformName in config.yaml")
	}

	keys, err := util.GeneratePemKeypair()
	if err != nil {
		return err
	}

	platform := &domain.Actor{
		Kind:          domain.KindOrganization,
		Username:      util.Name,
		Name:          conf.Conf.PlatformName,
		PublicKeyPem:  keys.Public,
		PrivateKeyPem: keys.Private,
		CreatedAt:     time.Now(),
	}
	if err := database.CreateActor(platform); err != nil {
		return err
	}
	log.Infof("Created platform actor %s (%s)", platform.Name, platform.IRI(conf.BaseURL()))
	return nil
}
