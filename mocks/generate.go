package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-router/internal/broker Broker
//go:generate mockgen -destination=./mock_signal_handler.go -package=mocks github.com/rxtech-lab/argo-router/internal/runner SignalHandler
//go:generate mockgen -destination=./mock_feed.go -package=mocks github.com/rxtech-lab/argo-router/internal/feed Feed
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-router/internal/strategy Strategy
