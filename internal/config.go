package internal

import "time"

type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=100"`
	TypingTTL            time.Duration `env:"TYPING_TTL,default=5s"`
	SweepInterval        time.Duration `env:"SWEEP_INTERVAL,default=1s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=10s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=15s"`
}
