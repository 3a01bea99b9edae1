package rssi_nav

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// MQTTConfig selects a broker topic that carries JSON vision hints.
type MQTTConfig struct {
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
}

// StartMQTTHints subscribes to cfg.Topic and feeds decoded hints into store.
//
// Payloads look like {"blocked":false,"free_left":0.7,"free_right":0.4}.
func StartMQTTHints(cfg MQTTConfig, store *HintStore, logger *zap.Logger) (paho.Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(3 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("hint broker connection lost", zap.Error(err))
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, errors.Errorf("connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connect %s", cfg.Broker)
	}

	sub := client.Subscribe(cfg.Topic, 0, func(_ paho.Client, msg paho.Message) {
		hint, err := parseHintJSON(msg.Payload())
		if err != nil {
			logger.Debug("drop hint message", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		store.Update(hint)
	})
	if sub.WaitTimeout(5*time.Second) && sub.Error() != nil {
		client.Disconnect(100)
		return nil, errors.Wrapf(sub.Error(), "subscribe %s", cfg.Topic)
	}
	logger.Info("subscribed to vision hints", zap.String("broker", cfg.Broker), zap.String("topic", cfg.Topic))
	return client, nil
}

// parseHintJSON decodes a hint payload. Missing free-space fields count as open.
func parseHintJSON(payload []byte) (ObstacleHint, error) {
	if !gjson.ValidBytes(payload) {
		return ObstacleHint{}, errors.New("invalid json payload")
	}
	blocked := gjson.GetBytes(payload, "blocked")
	if !blocked.Exists() {
		return ObstacleHint{}, errors.New("payload has no blocked field")
	}
	hint := ObstacleHint{Blocked: blocked.Bool(), FreeLeft: 1, FreeRight: 1}
	if v := gjson.GetBytes(payload, "free_left"); v.Exists() {
		hint.FreeLeft = clamp(v.Float(), 0, 1)
	}
	if v := gjson.GetBytes(payload, "free_right"); v.Exists() {
		hint.FreeRight = clamp(v.Float(), 0, 1)
	}
	return hint, nil
}
