package broker

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

const DefaultGatewayRequestTimeout = 5 * time.Second

// GatewayConfig configures the websocket session to a desktop trading gateway.
type GatewayConfig struct {
	URL              string `json:"url" yaml:"url" jsonschema:"title=Gateway URL,description=Websocket endpoint of the gateway (ws:// or wss://)" validate:"required,url"`
	ClientID         int    `json:"clientId" yaml:"client_id" jsonschema:"title=Client ID,description=Session id announced to the gateway,minimum=0" validate:"gte=0"`
	Account          string `json:"account,omitempty" yaml:"account" jsonschema:"title=Account,description=Account to trade when the gateway manages several"`
	RequestTimeoutMs int    `json:"requestTimeoutMs,omitempty" yaml:"request_timeout_ms" jsonschema:"title=Request Timeout,description=Milliseconds to wait for a gateway reply (default 5000),minimum=0" validate:"gte=0"`
}

// Validate validates the GatewayConfig struct.
func (c *GatewayConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid gateway provider config", err)
	}

	return nil
}

func (c GatewayConfig) requestTimeout() time.Duration {
	if c.RequestTimeoutMs <= 0 {
		return DefaultGatewayRequestTimeout
	}

	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func parseGatewayConfig(jsonConfig string) (*GatewayConfig, error) {
	var config GatewayConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse gateway config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
