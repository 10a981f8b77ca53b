package internal

import "time"

type Config struct {
	Host string `env:"HOST,required=true"`
	Port int    `env:"PORT,required=true"`

	BufferSize           int `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,required=true"`

	SinkTimeout    time.Duration `env:"SINK_TIMEOUT,required=true"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT,required=true"`
	MetricInterval time.Duration `env:"METRIC_INTERVAL,required=true"`

	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	LogLevel  string `env:"LOG_LEVEL,required=true"`
	DebugPort int    `env:"DEBUG_PORT"`
}
