package relay

import (
	"encoding/json"
	"errors"

	"tradegateway/internal/session"
	"tradegateway/pkg/mobius"
)

// Downstream command names.
const (
	CmdPing             = "Ping"
	CmdPong             = "Pong"
	CmdOrderOpen        = "OrderOpen"
	CmdOrderSetTicket   = "OrderSetTicket"
	CmdOrderClose       = "OrderClose"
	CmdResponse         = "Response"
	CmdNotifyOrderClose = "NotifyOrderClose"
)

// InboundFrame is a downstream request. The id is echoed back verbatim, so
// it is kept raw.
type InboundFrame struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Cmd   string          `json:"cmd"`
	Props json.RawMessage `json:"props,omitempty"`
}

// OutboundFrame is anything sent downstream.
type OutboundFrame struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Cmd    string          `json:"cmd"`
	Props  any             `json:"props,omitempty"`
	Result any             `json:"result,omitempty"`
	Error  any             `json:"error,omitempty"`
}

// errorCmd names a failure reply. Success replies use "Response" while
// failures use "response_<id>"; clients depend on both spellings.
func errorCmd(id json.RawMessage) string {
	return "response_" + idString(id)
}

func idString(id json.RawMessage) string {
	if len(id) == 0 {
		return ""
	}
	if id[0] == '"' {
		var s string
		if err := json.Unmarshal(id, &s); err == nil {
			return s
		}
	}
	return string(id)
}

// wireError converts err into the payload of an error frame: upstream
// errors pass through untouched, domain errors become their name.
func wireError(err error) any {
	var rpcErr *mobius.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var domainErr session.Error
	if errors.As(err, &domainErr) {
		return string(domainErr)
	}
	return err.Error()
}
