package server

type AuthType string

const (
	AuthTypeSecret AuthType = "secret"
	AuthTypeNone   AuthType = ""
)

type ICEServer struct {
	URLs       []string `yaml:"urls"`
	AuthType   AuthType `yaml:"auth_type"`
	AuthSecret struct {
		Username string `yaml:"username"`
		Secret   string `yaml:"secret"`
	} `yaml:"auth_secret"`
}

type TLSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

type RedisConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix"`
}

type StoreConfig struct {
	Type  StoreType   `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

type LobbyConfig struct {
	// InitialDelayMs is the delay before the first retry sweep after a join
	// leaves a partial group waiting.
	InitialDelayMs int `yaml:"initial_delay_ms"`

	// RetryIntervalMs is the delay between subsequent retry sweeps.
	RetryIntervalMs int `yaml:"retry_interval_ms"`
}

type PrometheusConfig struct {
	AccessToken string `yaml:"access_token"`
}

type Config struct {
	BindHost   string           `yaml:"bind_host"`
	BindPort   int              `yaml:"bind_port"`
	TLS        TLSConfig        `yaml:"tls"`
	Store      StoreConfig      `yaml:"store"`
	ICEServers []ICEServer      `yaml:"ice_servers"`
	Lobby      LobbyConfig      `yaml:"lobby"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}
