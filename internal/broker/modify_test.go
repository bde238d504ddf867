package broker

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/orders"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// fakeFlow applies cancellations to the tracker the way an adapter does once
// the broker confirms them.
type fakeFlow struct {
	tracker *orders.Tracker
	clock   clockwork.Clock

	mu         sync.Mutex
	nextID     int
	cancelled  []string
	submitted  []types.OrderRequest
	fillFirst  float64
	ignoreStop bool
}

func (f *fakeFlow) CancelOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	f.cancelled = append(f.cancelled, orderID)
	f.mu.Unlock()

	if f.ignoreStop {
		return nil
	}

	go func() {
		if f.fillFirst > 0 {
			f.tracker.Apply(orders.Update{OrderID: orderID, Status: types.OrderStatusPartial, Filled: optional.Some[float64](f.fillFirst), AveragePrice: 100})
		}

		f.tracker.Apply(orders.Update{OrderID: orderID, Status: types.OrderStatusCancelled, Filled: optional.Some[float64](f.fillFirst)})
	}()

	return nil
}

func (f *fakeFlow) SubmitOrder(_ context.Context, req types.OrderRequest) (types.Order, error) {
	f.mu.Lock()
	f.nextID++
	id := strconv.Itoa(100 + f.nextID)
	f.submitted = append(f.submitted, req)
	f.mu.Unlock()

	return f.tracker.Track(types.OrderFromRequest(id, "test", req, f.clock.Now())), nil
}

type ModifyTestSuite struct {
	suite.Suite
	clock   *clockwork.FakeClock
	tracker *orders.Tracker
	flow    *fakeFlow
}

func TestModifySuite(t *testing.T) {
	suite.Run(t, new(ModifyTestSuite))
}

func (suite *ModifyTestSuite) SetupTest() {
	suite.clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC))
	suite.tracker = orders.NewTracker("test", orders.VocabularyIB, orders.Config{}, nil, suite.clock, nil)
	suite.flow = &fakeFlow{tracker: suite.tracker, clock: suite.clock}
}

func (suite *ModifyTestSuite) trackLimitBuy(id string) {
	req := types.OrderRequest{
		Symbol:     "X",
		Side:       types.OrderSideBuy,
		Type:       types.OrderTypeLimit,
		Quantity:   10,
		LimitPrice: optional.Some(100.0),
	}
	suite.tracker.Track(types.OrderFromRequest(id, "test", req, suite.clock.Now()))
	suite.tracker.Apply(orders.Update{OrderID: id, NativeStatus: "Submitted"})
}

func (suite *ModifyTestSuite) TestReplacementHasNewID() {
	suite.trackLimitBuy("1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := CancelAndResubmit(ctx, suite.flow, suite.tracker, "1", types.OrderModification{
		LimitPrice: optional.Some(101.0),
	})
	suite.Require().NoError(err)
	suite.NotEqual("1", order.ID)
	suite.Equal(types.OrderStatusPending, order.Status)
	suite.Equal(101.0, order.LimitPrice.Unwrap())
	suite.Equal(10.0, order.Quantity)

	old, ok := suite.tracker.Get("1")
	suite.Require().True(ok)
	suite.Equal(types.OrderStatusCancelled, old.Status)
	suite.Equal(order.ID, old.ReplacedBy)
	suite.Equal([]string{"1"}, suite.flow.cancelled)
}

func (suite *ModifyTestSuite) TestReplacementCarriesRemainder() {
	suite.trackLimitBuy("1")
	suite.flow.fillFirst = 4

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := CancelAndResubmit(ctx, suite.flow, suite.tracker, "1", types.OrderModification{
		LimitPrice: optional.Some(99.0),
	})
	suite.Require().NoError(err)
	suite.Equal(6.0, order.Quantity)
}

func (suite *ModifyTestSuite) TestTerminalOrderCannotBeModified() {
	suite.trackLimitBuy("1")
	suite.tracker.Apply(orders.Update{OrderID: "1", NativeStatus: "Filled", Filled: optional.Some[float64](10), AveragePrice: 99.95})

	_, err := CancelAndResubmit(context.Background(), suite.flow, suite.tracker, "1", types.OrderModification{
		Quantity: optional.Some(5.0),
	})
	suite.True(errors.HasCode(err, errors.ErrCodeRejected))
	suite.Empty(suite.flow.cancelled)
}

func (suite *ModifyTestSuite) TestUnknownOrder() {
	_, err := CancelAndResubmit(context.Background(), suite.flow, suite.tracker, "404", types.OrderModification{
		Quantity: optional.Some(5.0),
	})
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func (suite *ModifyTestSuite) TestEmptyModification() {
	suite.trackLimitBuy("1")

	_, err := CancelAndResubmit(context.Background(), suite.flow, suite.tracker, "1", types.OrderModification{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *ModifyTestSuite) TestCancelNeverConfirmed() {
	suite.trackLimitBuy("1")
	suite.flow.ignoreStop = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := CancelAndResubmit(ctx, suite.flow, suite.tracker, "1", types.OrderModification{
		Quantity: optional.Some(5.0),
	})
	suite.True(errors.HasCode(err, errors.ErrCodeTimeout))
	suite.Empty(suite.flow.submitted)
}

func (suite *ModifyTestSuite) TestCloseRequest() {
	req, err := CloseRequest(types.Position{Symbol: "X", Side: types.PositionSideShort, Quantity: 3}, optional.None[float64]())
	suite.Require().NoError(err)
	suite.Equal(types.OrderSideBuy, req.Side)
	suite.Equal(3.0, req.Quantity)
	suite.Equal(types.OrderTypeMarket, req.Type)

	req, err = CloseRequest(types.Position{Symbol: "X", Side: types.PositionSideLong, Quantity: 3}, optional.Some(1.0))
	suite.Require().NoError(err)
	suite.Equal(types.OrderSideSell, req.Side)
	suite.Equal(1.0, req.Quantity)

	_, err = CloseRequest(types.Position{Symbol: "X", Side: types.PositionSideLong, Quantity: 3}, optional.Some(4.0))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = CloseRequest(types.Position{Symbol: "X"}, optional.None[float64]())
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}
