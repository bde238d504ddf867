package wire

import (
	"strconv"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

type factory func() Message

// inbound maps every gateway-to-client code to its message type.
var inbound = map[int]factory{
	CodeTickPrice:         func() Message { return &TickPrice{} },
	CodeTickSize:          func() Message { return &TickSize{} },
	CodeOrderStatus:       func() Message { return &OrderStatus{} },
	CodeErrMsg:            func() Message { return &ErrMsg{} },
	CodeOpenOrder:         func() Message { return &OpenOrder{} },
	CodeAcctValue:         func() Message { return &AcctValue{} },
	CodePortfolioValue:    func() Message { return &PortfolioValue{} },
	CodeAcctUpdateTime:    func() Message { return &AcctUpdateTime{} },
	CodeNextValidID:       func() Message { return &NextValidID{} },
	CodeExecutionData:     func() Message { return &ExecutionData{} },
	CodeManagedAccts:      func() Message { return &ManagedAccts{} },
	CodeHistoricalData:    func() Message { return &HistoricalData{} },
	CodeCurrentTime:       func() Message { return &CurrentTime{} },
	CodeRealTimeBars:      func() Message { return &RealTimeBar{} },
	CodeOpenOrderEnd:      func() Message { return &OpenOrderEnd{} },
	CodeAcctDownloadEnd:   func() Message { return &AcctDownloadEnd{} },
	CodeExecutionDataEnd:  func() Message { return &ExecutionDataEnd{} },
	CodeTickSnapshotEnd:   func() Message { return &TickSnapshotEnd{} },
	CodePositionData:      func() Message { return &PositionData{} },
	CodePositionEnd:       func() Message { return &PositionEnd{} },
	CodeAccountSummary:    func() Message { return &AccountSummary{} },
	CodeAccountSummaryEnd: func() Message { return &AccountSummaryEnd{} },
	CodePositionMulti:     func() Message { return &PositionMulti{} },
	CodePositionMultiEnd:  func() Message { return &PositionMultiEnd{} },
}

// outbound maps every client-to-gateway code to its request type.
var outbound = map[int]factory{
	CodeReqMktData:           func() Message { return &ReqMktData{} },
	CodeCancelMktData:        func() Message { return &CancelMktData{} },
	CodePlaceOrder:           func() Message { return &PlaceOrder{} },
	CodeCancelOrder:          func() Message { return &CancelOrder{} },
	CodeReqAcctData:          func() Message { return &ReqAcctData{} },
	CodeReqExecutions:        func() Message { return &ReqExecutions{} },
	CodeReqAllOpenOrders:     func() Message { return &ReqAllOpenOrders{} },
	CodeReqHistoricalData:    func() Message { return &ReqHistoricalData{} },
	CodeReqCurrentTime:       func() Message { return &ReqCurrentTime{} },
	CodeReqRealTimeBars:      func() Message { return &ReqRealTimeBars{} },
	CodeCancelRealTimeBars:   func() Message { return &CancelRealTimeBars{} },
	CodeReqAccountSummary:    func() Message { return &ReqAccountSummary{} },
	CodeCancelAccountSummary: func() Message { return &CancelAccountSummary{} },
	CodeStartAPI:             func() Message { return &StartAPI{} },
	CodeReqPositionsMulti:    func() Message { return &ReqPositionsMulti{} },
	CodeCancelPositionsMulti: func() Message { return &CancelPositionsMulti{} },
}

// Unknown carries a framed message whose code has no decoder.
type Unknown struct {
	MessageCode int
	Fields      []string
}

func (m *Unknown) Code() int { return m.MessageCode }

func (m *Unknown) walk(c fieldCodec, _ int) {
	for i := range m.Fields {
		c.Str(&m.Fields[i])
	}
}

// Encode renders a message as fields, starting with its code.
func Encode(m Message, serverVersion int) []string {
	w := &fieldWriter{fields: []string{strconv.Itoa(m.Code())}}
	m.walk(w, serverVersion)

	return w.fields
}

// Decode decodes one gateway-to-client message from the front of fields and
// reports how many fields it consumed. It returns ErrIncomplete when fields
// end before the message does.
func Decode(fields []string, serverVersion int) (Message, int, error) {
	return decode(inbound, fields, serverVersion)
}

// DecodeRequest decodes one client-to-gateway message from the front of fields.
func DecodeRequest(fields []string, serverVersion int) (Message, int, error) {
	return decode(outbound, fields, serverVersion)
}

func decode(table map[int]factory, fields []string, serverVersion int) (Message, int, error) {
	r := newFieldReader(fields)

	var code int
	r.Int(&code)

	if r.err != nil {
		return nil, 0, r.err
	}

	newMessage, ok := table[code]
	if !ok {
		return nil, 0, errors.Wrapf(errors.ErrCodeProtocolError, ErrUnknownMessage, "message code %d", code)
	}

	msg := newMessage()
	msg.walk(r, serverVersion)

	if r.err != nil {
		return nil, 0, r.err
	}

	return msg, r.pos, nil
}
