package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Site   Site   `yaml:"site"`
	Server Server `yaml:"server"`
	Queue  Queue  `yaml:"queue"`
}

type Site struct {
	FQDN         string `yaml:"fqdn"`
	Name         string `yaml:"name"`
	Registration string `yaml:"registration"` // open, invite, close
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	StreamTTL     int    `yaml:"streamTTL"` // seconds, stream id-list cache
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Queue struct {
	PollInterval     int      `yaml:"pollInterval"` // seconds
	ClaimLease       int      `yaml:"claimLease"`   // seconds before a stale claim is released
	Transports       []string `yaml:"transports"`
	IgnoreTransports []string `yaml:"ignoreTransports"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if config.Server.StreamTTL <= 0 {
		config.Server.StreamTTL = 60
	}
	if config.Queue.PollInterval <= 0 {
		config.Queue.PollInterval = 10
	}
	if config.Queue.ClaimLease <= 0 {
		config.Queue.ClaimLease = int((20 * time.Minute).Seconds())
	}

	return config, nil
}
