package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-gateway/internal/broker Broker
//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/rxtech-lab/argo-gateway/internal/marketdata Source
