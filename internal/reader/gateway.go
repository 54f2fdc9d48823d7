// SPDX-License-Identifier: MIT

package reader

import (
	"context"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nordlock/sentrygate/internal/apierr"
	"github.com/nordlock/sentrygate/internal/config"
	"github.com/nordlock/sentrygate/internal/log"
)

// inventoryGrace is the delay between a successful connect and the
// auto-start inventory command, giving the reader firmware time to settle.
const inventoryGrace = 1 * time.Second

// DetectionHandler processes one parsed detection. It is invoked from the
// Gateway's own goroutine, never from a Paho network-thread callback, so it
// is free to block on store lookups and audit appends.
type DetectionHandler func(ctx context.Context, d Detection)

// StatusHandler processes a raw reader-status payload.
type StatusHandler func(payload []byte)

// ResponseHandler processes a raw command-response payload.
type ResponseHandler func(payload []byte)

// Gateway is the long-lived MQTT client to one gate reader. Broker
// callbacks only enqueue; a single worker goroutine drains the queue and
// calls the registered handlers, keeping storage I/O off the Paho network
// thread per the application's scheduling model.
type Gateway struct {
	client   mqtt.Client
	gateCfg  config.GateConfig
	clientID string

	onDetection DetectionHandler
	onStatus    StatusHandler
	onResponse  ResponseHandler

	queue chan Detection
	done  chan struct{}
	wg    sync.WaitGroup

	publishLimiter *rate.Limiter
	logger         zerolog.Logger
}

// New constructs a Gateway. Call Start to connect.
func New(mqttCfg config.MQTTConfig, gateCfg config.GateConfig, onDetection DetectionHandler) *Gateway {
	g := &Gateway{
		gateCfg:        gateCfg,
		clientID:       mqttCfg.ClientID,
		onDetection:    onDetection,
		queue:          make(chan Detection, 256),
		done:           make(chan struct{}),
		publishLimiter: rate.NewLimiter(rate.Limit(20), 40),
		logger:         log.WithComponent("reader"),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(mqttCfg.BrokerURL)
	opts.SetClientID(mqttCfg.ClientID)
	if mqttCfg.Username != "" {
		opts.SetUsername(mqttCfg.Username)
		opts.SetPassword(mqttCfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetOnConnectHandler(g.handleConnect)
	opts.SetConnectionLostHandler(g.handleConnectionLost)

	g.client = mqtt.NewClient(opts)
	return g
}

// OnDetection replaces the handler invoked for parsed tag detections,
// letting the composition root wire a handler that itself closes over this
// already-constructed Gateway (e.g. to trigger PulseAlarm on an ALARM
// decision) without a construction-order cycle.
func (g *Gateway) OnDetection(h DetectionHandler) { g.onDetection = h }

// OnStatus registers the handler invoked for `data/status` payloads.
func (g *Gateway) OnStatus(h StatusHandler) { g.onStatus = h }

// OnResponse registers the handler invoked for `data/response` payloads.
func (g *Gateway) OnResponse(h ResponseHandler) { g.onResponse = h }

// Start connects to the broker and starts the worker goroutine. It blocks
// until the initial connect attempt resolves.
func (g *Gateway) Start(ctx context.Context) error {
	g.wg.Add(1)
	go g.run(ctx)

	token := g.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return apierr.TransportUnavailable("timed out connecting to MQTT broker")
	}
	if err := token.Error(); err != nil {
		return apierr.Wrap(apierr.KindTransportUnavailable, "connect to MQTT broker", err)
	}
	return nil
}

// Stop disconnects cleanly and waits for the worker goroutine to drain.
func (g *Gateway) Stop() {
	close(g.done)
	g.client.Disconnect(250)
	g.wg.Wait()
}

// IsConnected reports whether the broker connection is currently up.
func (g *Gateway) IsConnected() bool {
	return g.client.IsConnectionOpen()
}

func (g *Gateway) run(ctx context.Context) {
	defer g.wg.Done()
	for {
		select {
		case <-g.done:
			return
		case <-ctx.Done():
			return
		case d := <-g.queue:
			if g.onDetection != nil {
				g.onDetection(ctx, d)
			}
		}
	}
}

func (g *Gateway) handleConnect(c mqtt.Client) {
	g.logger.Info().Msg("connected to MQTT broker")

	subs := map[string]mqtt.MessageHandler{
		g.gateCfg.TagStreamTopic(g.clientID):    g.handleTagStream,
		g.gateCfg.DataResponseTopic(g.clientID): g.handleDataResponse,
		g.gateCfg.DataStatusTopic(g.clientID):   g.handleDataStatus,
	}
	for topic, handler := range subs {
		if token := c.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			g.logger.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
		}
	}

	time.AfterFunc(inventoryGrace, func() {
		if err := g.StartInventory(); err != nil {
			g.logger.Warn().Err(err).Msg("auto-start inventory failed")
		}
	})
}

func (g *Gateway) handleConnectionLost(_ mqtt.Client, err error) {
	g.logger.Warn().Err(err).Msg("MQTT connection lost, reconnecting")
}

// handleTagStream is invoked on the Paho network thread. It must not block:
// parse and enqueue only, dropping on a full queue with a warning.
func (g *Gateway) handleTagStream(_ mqtt.Client, msg mqtt.Message) {
	detections, err := ParseDetections(msg.Payload())
	if err != nil {
		g.logger.Warn().Err(err).Msg("dropping malformed detection payload")
		return
	}
	for _, d := range detections {
		select {
		case g.queue <- d:
		default:
			g.logger.Warn().Str("epc", d.RawEPC).Msg("detection queue full, dropping")
		}
	}
}

func (g *Gateway) handleDataResponse(_ mqtt.Client, msg mqtt.Message) {
	if g.onResponse != nil {
		g.onResponse(msg.Payload())
	}
}

func (g *Gateway) handleDataStatus(_ mqtt.Client, msg mqtt.Message) {
	if g.onStatus != nil {
		g.onStatus(msg.Payload())
	}
}

// publish is fire-and-forget: a disconnected broker drops the command with
// a warning rather than failing the caller, per the gateway's outbound
// command contract. The control plane is responsible for rejecting calls
// with TransportUnavailable before they reach here.
func (g *Gateway) publish(topic string, payload []byte) error {
	if !g.client.IsConnectionOpen() {
		g.logger.Warn().Str("topic", topic).Msg("not connected, dropping publish")
		return nil
	}
	_ = g.publishLimiter.Wait(context.Background())
	token := g.client.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

// StartInventory publishes the start-scan command.
func (g *Gateway) StartInventory() error {
	return g.publish(g.gateCfg.CmdRFIDTopic(g.clientID), rfidCommand("start"))
}

// StopInventory publishes the stop-scan command.
func (g *Gateway) StopInventory() error {
	return g.publish(g.gateCfg.CmdRFIDTopic(g.clientID), rfidCommand("stop"))
}

// QueryReaderStatus publishes the status-query command.
func (g *Gateway) QueryReaderStatus() error {
	return g.publish(g.gateCfg.CmdRFIDTopic(g.clientID), rfidCommand("status"))
}

// SetPower publishes the antenna power-set command.
func (g *Gateway) SetPower(levels PowerLevels) error {
	return g.publish(g.gateCfg.CmdPowerTopic(g.clientID), setPowerCommand(levels))
}

// GetPower publishes the antenna power-get command.
func (g *Gateway) GetPower() error {
	return g.publish(g.gateCfg.CmdPowerTopic(g.clientID), getPowerCommand())
}

// PulseAlarm publishes the GPO pulse command for durationSeconds.
func (g *Gateway) PulseAlarm(durationSeconds int) error {
	return g.publish(g.gateCfg.CmdGPOTopic(g.clientID), pulseCommand(durationSeconds))
}
