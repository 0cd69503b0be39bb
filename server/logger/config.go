package logger

import "strings"

// Config resolves a logging Level for a particular namespace.
type Config interface {
	// LevelForNamespace returns the logging Level for namespace.
	LevelForNamespace(namespace string) Level
}

// ConfigMap maps namespaces to levels. The empty key configures the root
// level used when no more specific entry matches.
type ConfigMap map[string]Level

// NewConfigMapFromString parses a CSV configuration string, for example:
//
//	"lobby:debug,room:trace,info"
//
// Each entry is either "namespace:level" or a bare level that configures the
// root. Useful for reading the configuration from an environment variable.
func NewConfigMapFromString(stringConfig string) Config {
	if stringConfig == "" {
		return nil
	}

	entries := strings.Split(stringConfig, ",")
	ret := make(ConfigMap, len(entries))

	for _, entry := range entries {
		if level, ok := LevelFromString(entry); ok {
			ret[""] = level
			continue
		}

		level := LevelInfo

		if index := strings.LastIndex(entry, ":"); index > -1 {
			if cfgLevel, ok := LevelFromString(entry[index+1:]); ok {
				level = cfgLevel
				entry = entry[:index]
			}
		}

		ret[entry] = level
	}

	return ret
}

// LevelForNamespace implements Config. Lookup order: the full namespace, the
// last namespace segment, then the root entry.
func (c ConfigMap) LevelForNamespace(namespace string) Level {
	if level, ok := c[namespace]; ok {
		return level
	}

	if index := strings.LastIndex(namespace, ":"); index > -1 {
		if level, ok := c[namespace[index+1:]]; ok {
			return level
		}
	}

	return c[""]
}
