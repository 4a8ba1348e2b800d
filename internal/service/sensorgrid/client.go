package sensorgrid

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a SignalStream backed by a city sensor-grid WebSocket
// feed. The feed pushes frames continuously; each frame carries a batch of
// observations for the subscribed regions.
type Client struct {
	apiKey         string
	websocketURL   string
	regions        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a sensor-grid SignalStream.
func New(apiKey, websocketURL string, regions []string, reconnectDelay, pingInterval time.Duration) drepo.SignalStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		regions:        regions,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("sensorgrid connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("sensorgrid: connected")
	return nil
}

// Subscribe subscribes to the configured regions.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("sensorgrid not connected")
	}
	for _, region := range c.regions {
		msg := map[string]string{"type": "subscribe", "region": region}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", region, err)
		}
		log.Printf("sensorgrid: subscribed %s", region)
	}
	return nil
}

type gridObservation struct {
	Region    string  `json:"region"`
	Kind      string  `json:"kind"`
	Detail    string  `json:"detail"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"t"` // ms
}

type gridMessage struct {
	Type string            `json:"type"`
	Data []gridObservation `json:"data"`
}

// Read streams raw signals and errors. Frames that are not observation
// batches are skipped. The signal channel is buffered; on backpressure the
// newest observation is dropped rather than blocking the read loop.
func (c *Client) Read(ctx context.Context) (<-chan *models.RawSignal, <-chan error) {
	signals := make(chan *models.RawSignal, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(signals)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("sensorgrid conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("sensorgrid read: %w", err)
					return
				}
				var m gridMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-observation frames
					continue
				}
				if m.Type != "observation" {
					continue
				}
				for _, obs := range m.Data {
					signal := &models.RawSignal{
						Platform:    "sensor",
						Content:     fmt.Sprintf("%s: %s", obs.Kind, obs.Detail),
						Author:      "sensor-grid",
						Timestamp:   time.UnixMilli(obs.Timestamp).UTC().Format(time.RFC3339),
						LocationRaw: obs.Region,
						Extra: map[string]string{
							"lat":  fmt.Sprintf("%f", obs.Lat),
							"lng":  fmt.Sprintf("%f", obs.Lng),
							"kind": obs.Kind,
						},
					}
					select {
					case signals <- signal:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return signals, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
