package session

import "github.com/shopspring/decimal"

// State is the connection state of the upstream session.
type State int

const (
	StateNotConnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Credentials identify the single upstream account shared by all clients.
type Credentials struct {
	Login           string
	Password        string
	AccountNumberID int64
}

// OrderOpenRequest is the downstream OrderOpen payload.
// TradeCmd 0 buys, any other value sells.
type OrderOpenRequest struct {
	SymbolName string          `json:"SymbolName"`
	Volume     decimal.Decimal `json:"Volume"`
	TradeCmd   int             `json:"TradeCmd"`
	Price      decimal.Decimal `json:"Price"`
}

// SetTicketRequest tags the upstream order Ticket with an external id.
type SetTicketRequest struct {
	Ticket     int64 `json:"Ticket"`
	ExternalID int64 `json:"MobiusTicket"`
}

// OrderCloseRequest closes the order tagged with ExternalID.
type OrderCloseRequest struct {
	ExternalID int64  `json:"MobiusTicket"`
	SymbolName string `json:"SymbolName"`
}

type OpenedOrder struct {
	Ticket    int64   `json:"Ticket"`
	OpenPrice float64 `json:"OpenPrice"`
	Volume    float64 `json:"Volume"`
}

type ClosedOrder struct {
	Ticket     int64   `json:"Ticket"`
	ClosePrice float64 `json:"ClosePrice"`
	Volume     float64 `json:"Volume"`
}

// CloseNotification reports an upstream close of an order tagged through
// this gateway. Ticket is the external id decoded from the order comment.
type CloseNotification struct {
	Ticket     int64   `json:"Ticket"`
	ClosePrice float64 `json:"ClosePrice"`
	Volume     float64 `json:"Volume"`
}

// Status is a point-in-time summary used by health checks.
type Status struct {
	State      string `json:"state"`
	Symbols    int    `json:"symbols"`
	Currencies int    `json:"currencies"`
	Orders     int    `json:"orders"`
}
