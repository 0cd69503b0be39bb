// Package client implements the peer side of the signaling protocol: a
// websocket signaling connection and a mesh call engine that negotiates one
// peer connection per remote member.
package client

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/logger"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/uuid"
	"nhooyr.io/websocket"
)

type SignalingParams struct {
	Log logger.Logger

	// BaseURL is the http or https URL of the signaling server.
	BaseURL string

	// ClientID identifies this client. Generated when empty.
	ClientID identifiers.ClientID

	// Name is the display name sent to other members.
	Name string

	// Insecure skips TLS certificate validation.
	Insecure bool
}

// Signaling is a client side websocket connection to the signaling server.
type Signaling struct {
	log      logger.Logger
	clientID identifiers.ClientID
	client   *server.Client
}

// DialRoom connects to a known room.
func DialRoom(ctx context.Context, params SignalingParams, roomID identifiers.RoomID) (*Signaling, error) {
	query := url.Values{}

	s, err := dial(ctx, params, "/ws/room/"+string(roomID), query)

	return s, errors.Trace(err)
}

// DialRandom joins the matchmaking lobby for topic. The server responds with
// a match message once enough clients are waiting.
func DialRandom(ctx context.Context, params SignalingParams, topic string, maxGroupSize int) (*Signaling, error) {
	query := url.Values{}

	if topic != "" {
		query.Set("topic", topic)
	}

	if maxGroupSize > 0 {
		query.Set("max", strconv.Itoa(maxGroupSize))
	}

	s, err := dial(ctx, params, "/ws/random", query)

	return s, errors.Trace(err)
}

func dial(ctx context.Context, params SignalingParams, path string, query url.Values) (*Signaling, error) {
	clientID := params.ClientID
	if clientID == "" {
		clientID = identifiers.ClientID(uuid.New())
	}

	wsURL, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, errors.Annotate(err, "parse base url")
	}

	if wsURL.Scheme != "http" && wsURL.Scheme != "https" {
		return nil, errors.Errorf("only http:// or https:// supported, but got: %s", params.BaseURL)
	}

	wsURL.Scheme = "ws" + strings.TrimPrefix(wsURL.Scheme, "http")
	wsURL.Path = path

	query.Set("clientId", string(clientID))

	if params.Name != "" {
		query.Set("name", params.Name)
	}

	wsURL.RawQuery = query.Encode()

	conn, _, err := websocket.Dial(ctx, wsURL.String(), &websocket.DialOptions{
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: params.Insecure,
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Annotatef(err, "dial: %s", wsURL)
	}

	log := params.Log.WithNamespaceAppended("signaling").WithCtx(logger.Ctx{
		"client_id": clientID,
	})

	return &Signaling{
		log:      log,
		clientID: clientID,
		client:   server.NewClientWithID(conn, clientID, params.Name),
	}, nil
}

func (s *Signaling) ClientID() identifiers.ClientID {
	return s.clientID
}

// Messages returns the channel of server messages. The channel is closed when
// the connection ends, after which Err reports the cause.
func (s *Signaling) Messages(ctx context.Context) <-chan message.Message {
	return s.client.Subscribe(ctx)
}

// SendSignal relays a negotiation payload to another member of the room.
func (s *Signaling) SendSignal(to identifiers.ClientID, payload message.SignalPayload) error {
	raw, err := payload.Encode()
	if err != nil {
		return errors.Trace(err)
	}

	return errors.Trace(s.client.Write(message.NewSignal("", to, raw)))
}

func (s *Signaling) Err() error {
	return s.client.Err()
}

func (s *Signaling) Close(reason string) error {
	return errors.Trace(s.client.Close(reason))
}
