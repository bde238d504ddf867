package types

import "slices"

// BrokerFeatures are the optional behaviours a broker adapter offers.
type BrokerFeatures struct {
	Streaming        bool `json:"streaming"`
	Margin           bool `json:"margin"`
	FractionalShares bool `json:"fractional_shares"`
	ExtendedHours    bool `json:"extended_hours"`
	PaperTrading     bool `json:"paper_trading"`
	// NativeModify is false when ModifyOrder cancels and resubmits.
	NativeModify bool `json:"native_modify"`
	MarketHours  bool `json:"market_hours"`
}

// BrokerCapabilities describes what a broker adapter supports. It is fixed for
// the lifetime of an adapter instance.
type BrokerCapabilities struct {
	AssetClasses []AssetClass   `json:"asset_classes"`
	OrderTypes   []OrderType    `json:"order_types"`
	TimeInForce  []TimeInForce  `json:"time_in_force"`
	Timeframes   []Timeframe    `json:"timeframes"`
	Features     BrokerFeatures `json:"features"`
}

// Clone returns a copy that shares no slices with c.
func (c BrokerCapabilities) Clone() BrokerCapabilities {
	return BrokerCapabilities{
		AssetClasses: slices.Clone(c.AssetClasses),
		OrderTypes:   slices.Clone(c.OrderTypes),
		TimeInForce:  slices.Clone(c.TimeInForce),
		Timeframes:   slices.Clone(c.Timeframes),
		Features:     c.Features,
	}
}

func (c BrokerCapabilities) SupportsOrderType(t OrderType) bool {
	return slices.Contains(c.OrderTypes, t)
}

func (c BrokerCapabilities) SupportsTimeInForce(tif TimeInForce) bool {
	return tif == "" || slices.Contains(c.TimeInForce, tif)
}

func (c BrokerCapabilities) SupportsTimeframe(tf Timeframe) bool {
	return slices.Contains(c.Timeframes, tf)
}

func (c BrokerCapabilities) SupportsAssetClass(a AssetClass) bool {
	return a == "" || slices.Contains(c.AssetClasses, a)
}
