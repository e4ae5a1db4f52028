package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string  `yaml:"http-port" env:"HTTP_PORT" env-default:"4000"`
	SocketPort string  `yaml:"socket-port" env:"SOCKET_PORT" env-default:"4001"`
	ClientURL  string  `yaml:"client-url" env:"CLIENT_URL" env-default:"http://localhost:3000"`
	Room       Room    `yaml:"room"`
	Results    Results `yaml:"results"`
	Redis      Redis   `yaml:"redis"`
	NATS       NATS    `yaml:"nats"`
}

type Room struct {
	IdleTTL         time.Duration `yaml:"idle-ttl" env:"ROOM_IDLE_TTL" env-default:"5m"`
	CleanupInterval time.Duration `yaml:"cleanup-interval" env:"ROOM_CLEANUP_INTERVAL" env-default:"1m"`
	CodeAttempts    int           `yaml:"code-attempts" env:"ROOM_CODE_ATTEMPTS" env-default:"8"`
}

type Results struct {
	TTL time.Duration `yaml:"ttl" env:"RESULTS_TTL" env-default:"24h"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// NATS is optional; an empty URL disables the event mirror.
type NATS struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject-prefix" env:"NATS_SUBJECT_PREFIX" env-default:"rps.rooms"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *NATS) Enabled() bool {
	return that.URL != ""
}
