package util

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const Name = "gutwerk"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host         string
		HttpPort     int    `yaml:"httpPort"`
		Domain       string `yaml:"domain"`
		PlatformName string `yaml:"platformName"`
		// Closed restricts read access to partners with an accepted Follow.
		Closed  bool `yaml:"closed"`
		WithRss bool `yaml:"withRss"`
	}
}

// BaseURL returns the absolute URL prefix all local IRIs are derived from.
func (c *AppConfig) BaseURL() string {
	return fmt.Sprintf("https://%s", c.Conf.Domain)
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Infof("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Warnf("Could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Infof("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("GUTWERK_HOST")
	envHttpPort := os.Getenv("GUTWERK_HTTPPORT")
	envDomain := os.Getenv("GUTWERK_DOMAIN")
	envPlatformName := os.Getenv("GUTWERK_PLATFORM_NAME")
	envClosed := os.Getenv("GUTWERK_CLOSED")
	envWithRss := os.Getenv("GUTWERK_WITH_RSS")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envDomain != "" {
		c.Conf.Domain = envDomain
	}

	if envPlatformName != "" {
		c.Conf.PlatformName = envPlatformName
	}

	if envClosed == "true" {
		c.Conf.Closed = true
	}

	if envWithRss == "true" {
		c.Conf.WithRss = true
	}

	return c, nil
}
