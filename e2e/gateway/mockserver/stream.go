package mockserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-gateway/internal/types"
)

// BookStream names the book ticker stream of a symbol.
func BookStream(symbol string) string {
	return strings.ToLower(symbol) + "@bookTicker"
}

// KlineStream names the kline stream of a symbol and interval.
func KlineStream(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}

// handleStream registers the connection under its stream name and holds it
// until the client goes away. Events are pushed by the Publish methods.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["stream"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := &subscriber{conn: conn}

	s.streamMu.Lock()
	if s.streams[name] == nil {
		s.streams[name] = make(map[*subscriber]struct{})
	}
	s.streams[name][sub] = struct{}{}
	s.streamMu.Unlock()

	defer func() {
		s.streamMu.Lock()
		delete(s.streams[name], sub)
		s.streamMu.Unlock()

		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Subscribers counts the open connections on a stream.
func (s *Server) Subscribers(stream string) int {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	return len(s.streams[stream])
}

// CloseStreams drops every open stream connection.
func (s *Server) CloseStreams() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	for _, subs := range s.streams {
		for sub := range subs {
			_ = sub.conn.Close()
		}
	}
}

func (s *Server) publish(stream string, event any) {
	s.streamMu.Lock()
	subs := make([]*subscriber, 0, len(s.streams[stream]))
	for sub := range s.streams[stream] {
		subs = append(subs, sub)
	}
	s.streamMu.Unlock()

	for _, sub := range subs {
		_ = sub.send(event)
	}
}

// PublishBook pushes the current book of a symbol to its ticker stream.
func (s *Server) PublishBook(symbol string) {
	s.mu.Lock()
	book := s.books[symbol]
	s.mu.Unlock()

	s.publish(BookStream(symbol), map[string]any{
		"u": time.Now().UnixNano(),
		"s": symbol,
		"b": formatFloat(book.Bid),
		"B": formatFloat(book.BidQty),
		"a": formatFloat(book.Ask),
		"A": formatFloat(book.AskQty),
	})
}

// PublishKline pushes a candle to its kline stream. Final marks the candle
// closed.
func (s *Server) PublishKline(bar types.Bar, final bool) {
	interval := string(bar.Timeframe)
	start := bar.Timestamp.UnixMilli()

	s.publish(KlineStream(bar.Symbol, interval), map[string]any{
		"e": "kline",
		"E": time.Now().UnixMilli(),
		"s": bar.Symbol,
		"k": map[string]any{
			"t": start,
			"T": bar.Timestamp.Add(bar.Timeframe.Duration()).UnixMilli() - 1,
			"s": bar.Symbol,
			"i": interval,
			"f": 1,
			"L": 100,
			"o": formatFloat(bar.Open),
			"c": formatFloat(bar.Close),
			"h": formatFloat(bar.High),
			"l": formatFloat(bar.Low),
			"v": formatFloat(bar.Volume),
			"n": 100,
			"x": final,
			"q": formatFloat(bar.Volume * bar.Close),
			"V": formatFloat(bar.Volume / 2),
			"Q": formatFloat(bar.Volume * bar.Close / 2),
		},
	})
}
