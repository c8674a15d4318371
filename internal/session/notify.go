package session

import (
	"encoding/json"

	"tradegateway/pkg/mobius"

	"go.uber.org/zap"
)

func (c *Client) onServerNotify(data json.RawMessage) {
	var n mobius.ServerNotify
	if err := json.Unmarshal(data, &n); err != nil {
		c.logger.Warn("failed to decode server notification", zap.Error(err))
		return
	}
	order := n.Result

	switch n.Cmd {
	case mobius.NotifyOrderOpen:
		c.orders.Add(order)

	case mobius.NotifyOrderModify:
		if !c.orders.Update(order) {
			c.logger.Debug("modify for unknown order", zap.Int64("ticket", order.Ticket))
		}

	case mobius.NotifyOrderClose:
		c.orders.Remove(order.Ticket)
		c.notifyClose(order)

	default:
		c.logger.Debug("ignored server notification", zap.String("cmd", n.Cmd))
	}
}

// notifyClose surfaces closes of orders tagged through this gateway.
func (c *Client) notifyClose(order mobius.Order) {
	externalID, ok := DecodeComment(order.Comment)
	if !ok {
		return
	}

	sym, ok := c.instruments.Symbol(order.SymbolID)
	if !ok {
		c.logger.Warn("close for order with unknown symbol",
			zap.Int64("ticket", order.Ticket),
			zap.Int64("symbol_id", order.SymbolID),
		)
		return
	}

	c.emitClose(CloseNotification{
		Ticket:     externalID,
		ClosePrice: toFloat(order.ClosePrice, sym.FractionalDigits),
		Volume:     toFloat(order.Volume, c.instruments.VolumeDigits(sym)),
	})
}
