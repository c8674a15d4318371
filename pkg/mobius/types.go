package mobius

import "encoding/json"

// Request is an outbound RPC frame.
type Request struct {
	ID   int64  `json:"Id"`
	Cmd  string `json:"Cmd"`
	Data any    `json:"Data,omitempty"`
}

// Envelope covers both inbound shapes: replies carry Id, pushes carry Event.
type Envelope struct {
	ID     int64           `json:"Id,omitempty"`
	Event  string          `json:"Event,omitempty"`
	Data   json.RawMessage `json:"Data,omitempty"`   // push payload
	Result json.RawMessage `json:"Result,omitempty"` // reply payload
	Error  json.RawMessage `json:"Error,omitempty"`  // non-null means the call failed
}

// Symbol is a tradable instrument as sent in the init snapshot.
type Symbol struct {
	ID               int64  `json:"Id"`
	Name             string `json:"Name"`
	FractionalDigits int32  `json:"FractionalDigits"`
	MarginCurrencyID int64  `json:"MarginCurrencyId"`
}

type Currency struct {
	ID                     int64 `json:"Id"`
	VolumeFractionalDigits int32 `json:"VolumeFractionalDigits"`
}

// Order is an upstream order. Prices and volume are fixed-point integers.
type Order struct {
	Ticket     int64  `json:"Ticket"`
	Comment    string `json:"Comment"`
	SymbolID   int64  `json:"SymbolId"`
	Volume     int64  `json:"Volume"`
	OpenPrice  int64  `json:"OpenPrice"`
	ClosePrice int64  `json:"ClosePrice"`
}

// InitData is the session snapshot pushed once the login is accepted.
// Symbols and currencies arrive as objects keyed by id.
type InitData struct {
	Orders     []Order            `json:"Orders"`
	Currencies map[int64]Currency `json:"Currencies"`
	Symbols    map[int64]Symbol   `json:"Symbols"`
}

// ServerNotify is the payload of EventServerNotify.
type ServerNotify struct {
	Cmd    string `json:"Cmd"`
	Result Order  `json:"Result"`
}

type AuthParams struct {
	Login    string `json:"Login"`
	Password string `json:"Password"`
}

type LoginParams struct {
	JWT             string `json:"JWT"`
	AccountNumberID int64  `json:"AccountNumberId"`
}

type OrderOpenParams struct {
	Volume   int64    `json:"Volume"`
	Price    int64    `json:"Price"`
	SymbolID int64    `json:"SymbolId"`
	TradeCmd TradeCmd `json:"TradeCmd"`
}

type OrderModifyParams struct {
	Ticket  int64  `json:"Ticket"`
	Comment string `json:"Comment"`
}

type OrderCloseParams struct {
	Ticket int64 `json:"Ticket"`
	Volume int64 `json:"Volume"`
}
