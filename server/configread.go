package server

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v2"
)

// InitConfig sets the defaults used when neither a config file nor the
// environment overrides a value.
func InitConfig(c *Config) {
	c.BindPort = 3000
	c.Store.Type = StoreTypeMemory
	c.Lobby.InitialDelayMs = 500
	c.Lobby.RetryIntervalMs = 2000
	c.ICEServers = []ICEServer{{
		URLs: []string{"stun:stun.l.google.com:19302"},
	}, {
		URLs: []string{"stun:global.stun.twilio.com:3478?transport=udp"},
	}}
}

// ReadConfig reads the configuration: defaults, then the provided yaml files
// in order, then MESHROOMS_-prefixed environment variables.
func ReadConfig(filenames []string) (c Config, err error) {
	InitConfig(&c)
	err = ReadConfigFiles(filenames, &c)
	ReadConfigFromEnv("MESHROOMS_", &c)

	return c, errors.Trace(err)
}

func ReadConfigFiles(filenames []string, c *Config) (err error) {
	for _, filename := range filenames {
		if err := ReadConfigFile(filename, c); err != nil {
			return errors.Trace(err)
		}
	}

	return nil
}

func ReadConfigFile(filename string, c *Config) (err error) {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Annotatef(err, "open config file: %s", filename)
	}

	defer f.Close()

	err = ReadConfigYAML(f, c)

	return errors.Annotatef(err, "read yaml config: %s", filename)
}

func ReadConfigYAML(reader io.Reader, c *Config) error {
	decoder := yaml.NewDecoder(reader)
	if err := decoder.Decode(c); err != nil {
		return errors.Annotate(err, "decode yaml")
	}

	return nil
}

func ReadConfigFromEnv(prefix string, c *Config) {
	setEnvString(&c.BindHost, prefix+"BIND_HOST")
	setEnvInt(&c.BindPort, prefix+"BIND_PORT")
	setEnvString(&c.TLS.Cert, prefix+"TLS_CERT")
	setEnvString(&c.TLS.Key, prefix+"TLS_KEY")

	setEnvStoreType(&c.Store.Type, prefix+"STORE_TYPE")
	setEnvString(&c.Store.Redis.Host, prefix+"STORE_REDIS_HOST")
	setEnvInt(&c.Store.Redis.Port, prefix+"STORE_REDIS_PORT")
	setEnvString(&c.Store.Redis.Prefix, prefix+"STORE_REDIS_PREFIX")

	setEnvInt(&c.Lobby.InitialDelayMs, prefix+"LOBBY_INITIAL_DELAY_MS")
	setEnvInt(&c.Lobby.RetryIntervalMs, prefix+"LOBBY_RETRY_INTERVAL_MS")

	if value, ok := os.LookupEnv(prefix + "ICE_SERVER_URLS"); ok {
		// Replace the default servers, even when the value is empty.
		c.ICEServers = make([]ICEServer, 0, 1)

		var ice ICEServer

		setSlice(&ice.URLs, value)

		if len(ice.URLs) > 0 {
			setEnvAuthType(&ice.AuthType, prefix+"ICE_SERVER_AUTH_TYPE")
			setEnvString(&ice.AuthSecret.Secret, prefix+"ICE_SERVER_SECRET")
			setEnvString(&ice.AuthSecret.Username, prefix+"ICE_SERVER_USERNAME")
			c.ICEServers = append(c.ICEServers, ice)
		}
	}

	setEnvString(&c.Prometheus.AccessToken, prefix+"PROMETHEUS_ACCESS_TOKEN")
}

func setSlice(dest *[]string, value string) {
	for _, v := range strings.Split(value, ",") {
		if v != "" {
			*dest = append(*dest, v)
		}
	}
}

func setEnvString(dest *string, name string) {
	value := os.Getenv(name)
	if value != "" {
		*dest = value
	}
}

func setEnvInt(dest *int, name string) {
	value, err := strconv.Atoi(os.Getenv(name))
	if err == nil {
		*dest = value
	}
}

func setEnvAuthType(authType *AuthType, name string) {
	switch AuthType(os.Getenv(name)) {
	case AuthTypeSecret:
		*authType = AuthTypeSecret
	case AuthTypeNone:
		*authType = AuthTypeNone
	}
}

func setEnvStoreType(storeType *StoreType, name string) {
	switch StoreType(os.Getenv(name)) {
	case StoreTypeRedis:
		*storeType = StoreTypeRedis
	case StoreTypeMemory:
		*storeType = StoreTypeMemory
	}
}
