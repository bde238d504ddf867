package events

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BusTestSuite struct {
	suite.Suite
	bus *Bus
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusTestSuite))
}

func (suite *BusTestSuite) SetupTest() {
	suite.bus = NewBusWithBuffer(logger.NewNopLogger(), 2)
}

func (suite *BusTestSuite) TestPublishReachesEverySubscriber() {
	first := suite.bus.Subscribe()
	second := suite.bus.Subscribe()

	suite.bus.Publish(NewConnected("ib", time.Unix(0, 0)))

	for _, sub := range []<-chan Event{first, second} {
		select {
		case evt := <-sub:
			suite.IsType(Connected{}, evt)
			suite.Equal("ib", evt.Source())
		default:
			suite.Fail("event not delivered")
		}
	}
}

func (suite *BusTestSuite) TestSlowSubscriberDoesNotBlock() {
	slow := suite.bus.Subscribe()

	for i := 0; i < 5; i++ {
		suite.bus.Publish(NewQuoteUpdate("binance", time.Unix(int64(i), 0), types.Quote{Symbol: "BTCUSDT"}))
	}

	suite.Len(slow, 2)
	suite.Equal(uint64(3), suite.bus.Dropped())
}

func (suite *BusTestSuite) TestUnsubscribeClosesChannel() {
	sub := suite.bus.Subscribe()
	suite.bus.Unsubscribe(sub)

	_, ok := <-sub
	suite.False(ok)

	suite.NotPanics(func() {
		suite.bus.Publish(NewError("ib", time.Unix(0, 0), errors.ErrCodeUpstream, "boom"))
	})
}

func (suite *BusTestSuite) TestCloseClosesAllSubscribers() {
	sub := suite.bus.Subscribe()
	suite.bus.Close()

	_, ok := <-sub
	suite.False(ok)

	late := suite.bus.Subscribe()
	_, ok = <-late
	suite.False(ok)
}

func (suite *BusTestSuite) TestEventVariants() {
	evt := Event(NewDisconnected("ib", time.Unix(0, 0), "socket closed", true))

	switch e := evt.(type) {
	case Disconnected:
		suite.True(e.Terminal)
		suite.Equal("socket closed", e.Reason)
	default:
		suite.Fail("unexpected variant")
	}
}

func (suite *BusTestSuite) TestNilBusPublishIsNoop() {
	var bus *Bus
	suite.NotPanics(func() {
		bus.Publish(NewConnected("ib", time.Unix(0, 0)))
	})
}
