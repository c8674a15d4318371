package mobius

// Command names understood by the upstream trade server.
const (
	CmdAuth        = "Auth"
	CmdLogin       = "Login"
	CmdOrderOpen   = "OrderOpen"
	CmdOrderModify = "OrderModify"
	CmdOrderClose  = "OrderClose"
)

// Push event names emitted by WSClient.
const (
	EventOpen         = "open"
	EventInit         = "init"
	EventServerNotify = "TradeServerNotify"
	EventClose        = "close"
)

// Server notification kinds carried inside EventServerNotify.
const (
	NotifyOrderOpen   = "NotifyOrderOpen"
	NotifyOrderModify = "NotifyOrderModify"
	NotifyOrderClose  = "NotifyOrderClose"
)

// TradeCmd is the order direction as the upstream encodes it.
type TradeCmd int

const (
	TradeCmdBuy  TradeCmd = 0
	TradeCmdSell TradeCmd = 1
)

// ParseTradeCmd maps a client supplied direction: 0 is buy, anything else sells.
func ParseTradeCmd(v int) TradeCmd {
	if v == int(TradeCmdBuy) {
		return TradeCmdBuy
	}
	return TradeCmdSell
}

func (c TradeCmd) String() string {
	if c == TradeCmdBuy {
		return "buy"
	}
	return "sell"
}
