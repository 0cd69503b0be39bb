package server

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"
)

type ICEAuthServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// GetICEAuthServers resolves the configured ICE servers into the form served
// to clients, generating time-limited TURN credentials where a static auth
// secret is configured (coturn's use-auth-secret scheme).
func GetICEAuthServers(servers []ICEServer) (result []ICEAuthServer) {
	for _, server := range servers {
		result = append(result, getICEServer(server))
	}

	return result
}

func getICEServer(server ICEServer) ICEAuthServer {
	switch server.AuthType {
	case AuthTypeSecret:
		return getICEStaticAuthSecretCredentials(server)
	default:
		return ICEAuthServer{URLs: server.URLs}
	}
}

func getICEStaticAuthSecretCredentials(server ICEServer) ICEAuthServer {
	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	username := fmt.Sprintf("%d:%s", timestamp, server.AuthSecret.Username)

	h := hmac.New(sha1.New, []byte(server.AuthSecret.Secret))
	h.Write([]byte(username))

	return ICEAuthServer{
		URLs:       server.URLs,
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(h.Sum(nil)),
	}
}
