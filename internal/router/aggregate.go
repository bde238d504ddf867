package router

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-gateway/internal/broker"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BrokerError is the failure of one broker within an aggregate call.
type BrokerError struct {
	BrokerID string `json:"broker_id"`
	Err      error  `json:"-"`
}

func (e BrokerError) Error() string {
	return fmt.Sprintf("%s: %v", e.BrokerID, e.Err)
}

func (e BrokerError) Unwrap() error {
	return e.Err
}

// Aggregate is the merged result of a call fanned out to every connected
// broker. Items carry the id of the broker they came from.
type Aggregate[T any] struct {
	Items  []T           `json:"items"`
	Errors []BrokerError `json:"errors,omitempty"`
}

// OK reports whether every broker answered.
func (a Aggregate[T]) OK() bool {
	return len(a.Errors) == 0
}

func collectErrors(brokers []broker.Broker, failures []error) []BrokerError {
	var result []BrokerError

	for i, err := range failures {
		if err != nil {
			result = append(result, BrokerError{BrokerID: brokers[i].ID(), Err: err})
		}
	}

	return result
}

// fanOut calls fetch on every ready broker concurrently. A failing broker
// contributes an error instead of failing the call.
func fanOut[T any](ctx context.Context, r *Router, name string, fetch func(context.Context, broker.Broker) ([]T, error)) Aggregate[T] {
	brokers := r.ready()
	results := make([][]T, len(brokers))
	failures := make([]error, len(brokers))

	var g errgroup.Group

	for i, b := range brokers {
		g.Go(func() error {
			items, err := fetch(ctx, b)
			if err != nil {
				r.logger.Warn("Broker failed in aggregate call",
					zap.String("call", name),
					zap.String("broker", b.ID()),
					zap.Error(err),
				)
				failures[i] = err

				return nil
			}

			results[i] = items

			return nil
		})
	}

	_ = g.Wait()

	var aggregate Aggregate[T]
	for _, items := range results {
		aggregate.Items = append(aggregate.Items, items...)
	}

	aggregate.Errors = collectErrors(brokers, failures)

	return aggregate
}

// GetAllPositions merges the positions of every connected broker.
func (r *Router) GetAllPositions(ctx context.Context) Aggregate[types.Position] {
	return fanOut(ctx, r, "positions", func(ctx context.Context, b broker.Broker) ([]types.Position, error) {
		positions, err := b.GetPositions(ctx)
		for i := range positions {
			positions[i].BrokerID = b.ID()
		}

		return positions, err
	})
}

// GetAllOrders merges the orders matching filter from every connected broker.
func (r *Router) GetAllOrders(ctx context.Context, filter types.OrderFilter) Aggregate[types.Order] {
	return fanOut(ctx, r, "orders", func(ctx context.Context, b broker.Broker) ([]types.Order, error) {
		orders, err := b.GetOrders(ctx, filter)
		for i := range orders {
			orders[i].BrokerID = b.ID()
		}

		return orders, err
	})
}

// GetAllAccounts returns the account of every connected broker.
func (r *Router) GetAllAccounts(ctx context.Context) Aggregate[types.Account] {
	return fanOut(ctx, r, "accounts", func(ctx context.Context, b broker.Broker) ([]types.Account, error) {
		account, err := b.GetAccount(ctx)
		if err != nil {
			return nil, err
		}

		account.BrokerID = b.ID()

		return []types.Account{account}, nil
	})
}

// GetAllTrades merges the trades matching filter from every connected broker.
func (r *Router) GetAllTrades(ctx context.Context, filter types.TradeFilter) Aggregate[types.Trade] {
	return fanOut(ctx, r, "trades", func(ctx context.Context, b broker.Broker) ([]types.Trade, error) {
		trades, err := b.GetTrades(ctx, filter)
		for i := range trades {
			trades[i].BrokerID = b.ID()
		}

		return trades, err
	})
}

// CloseAllPositions flattens the positions of every connected broker.
func (r *Router) CloseAllPositions(ctx context.Context) Aggregate[types.Order] {
	return fanOut(ctx, r, "close_all", func(ctx context.Context, b broker.Broker) ([]types.Order, error) {
		return b.CloseAllPositions(ctx)
	})
}
