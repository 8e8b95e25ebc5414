package broker

import (
	"sort"

	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/rxtech-lab/argo-router/pkg/schema"
)

type ProviderType string

const (
	ProviderPaper          ProviderType = "paper"
	ProviderBinanceSpot    ProviderType = "binance-spot"
	ProviderBinanceFutures ProviderType = "binance-futures"
	ProviderGateway        ProviderType = "gateway"
)

type ProviderInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderPaper: {
		Name:           string(ProviderPaper),
		DisplayName:    "Paper",
		Description:    "In-memory account that fills every order immediately",
		IsPaperTrading: true,
	},
	ProviderBinanceSpot: {
		Name:           string(ProviderBinanceSpot),
		DisplayName:    "Binance Spot",
		Description:    "Binance spot REST API (set testnet for the sandbox)",
		IsPaperTrading: false,
	},
	ProviderBinanceFutures: {
		Name:           string(ProviderBinanceFutures),
		DisplayName:    "Binance USD-M Futures",
		Description:    "Binance USD-M futures REST API with signed positions",
		IsPaperTrading: false,
	},
	ProviderGateway: {
		Name:           string(ProviderGateway),
		DisplayName:    "Desktop Gateway",
		Description:    "Stateful websocket session to a locally running trading gateway",
		IsPaperTrading: false,
	},
}

// GetSupportedProviders returns the registered provider names in sorted order.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific broker provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeUnsupportedProvider, "unsupported broker provider: %s", providerName)
	}

	return info, nil
}

// GetProviderConfigSchema returns the JSON schema for a provider's configuration.
func GetProviderConfigSchema(providerName string) (string, error) {
	switch ProviderType(providerName) {
	case ProviderPaper:
		return schema.ToJSONSchema("paper broker config", PaperConfig{})
	case ProviderBinanceSpot, ProviderBinanceFutures:
		return schema.ToJSONSchema("binance broker config", BinanceConfig{})
	case ProviderGateway:
		return schema.ToJSONSchema("gateway broker config", GatewayConfig{})
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedProvider, "unsupported broker provider: %s", providerName)
	}
}

// ParseProviderConfig parses a JSON configuration string for the given provider.
func ParseProviderConfig(providerName string, jsonConfig string) (any, error) {
	switch ProviderType(providerName) {
	case ProviderPaper:
		return parsePaperConfig(jsonConfig)
	case ProviderBinanceSpot, ProviderBinanceFutures:
		return parseBinanceConfig(jsonConfig)
	case ProviderGateway:
		return parseGatewayConfig(jsonConfig)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedProvider, "unsupported broker provider: %s", providerName)
	}
}

// NewBroker creates a broker for the provider type. config must be the pointer
// returned by ParseProviderConfig for the same provider.
func NewBroker(providerType ProviderType, config any, log *logger.Logger) (Broker, error) {
	switch providerType {
	case ProviderPaper:
		cfg, ok := config.(*PaperConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for paper provider")
		}

		return NewPaperBroker(*cfg, log)

	case ProviderBinanceSpot, ProviderBinanceFutures:
		cfg, ok := config.(*BinanceConfig)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid config type for %s provider", providerType)
		}

		return NewBinanceBroker(*cfg, providerType == ProviderBinanceFutures, log)

	case ProviderGateway:
		cfg, ok := config.(*GatewayConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for gateway provider")
		}

		return NewGatewayBroker(*cfg, log)

	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedProvider, "unsupported broker provider: %s", providerType)
	}
}
