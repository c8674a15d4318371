package session

import (
	"context"
	"encoding/json"
	"fmt"

	"tradegateway/pkg/mobius"

	"go.uber.org/zap"
)

// OrderOpen opens an order on the named symbol and returns the opened
// orders with prices and volumes in decimal units.
func (c *Client) OrderOpen(ctx context.Context, req OrderOpenRequest) ([]OpenedOrder, error) {
	sym, ok := c.instruments.SymbolByName(req.SymbolName)
	if !ok {
		return nil, ErrSymbolNotFound
	}
	volumeDigits := c.instruments.VolumeDigits(sym)

	params := mobius.OrderOpenParams{
		Volume:   ToInt(req.Volume, volumeDigits),
		Price:    ToInt(req.Price, sym.FractionalDigits),
		SymbolID: sym.ID,
		TradeCmd: mobius.ParseTradeCmd(req.TradeCmd),
	}

	orders, err := c.call(ctx, mobius.CmdOrderOpen, params)
	if err != nil {
		return nil, err
	}

	out := make([]OpenedOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, OpenedOrder{
			Ticket:    o.Ticket,
			OpenPrice: toFloat(o.OpenPrice, sym.FractionalDigits),
			Volume:    toFloat(o.Volume, volumeDigits),
		})
	}

	c.logger.Info("order opened",
		zap.String("symbol", sym.Name),
		zap.Stringer("side", params.TradeCmd),
		zap.Int64("volume", params.Volume),
		zap.Int64("price", params.Price),
		zap.Int("orders", len(out)),
	)
	return out, nil
}

// OrderSetTicket tags the upstream order with the external id. The modify
// is fire-and-forget: only a failure to hand it to the transport is returned.
func (c *Client) OrderSetTicket(_ context.Context, req SetTicketRequest) error {
	err := c.transport.Send(mobius.CmdOrderModify, mobius.OrderModifyParams{
		Ticket:  req.Ticket,
		Comment: EncodeComment(req.ExternalID),
	}, nil)
	if err != nil {
		return err
	}

	c.logger.Info("order tagged", zap.Int64("ticket", req.Ticket), zap.Int64("external_id", req.ExternalID))
	return nil
}

// OrderClose closes the mirrored order tagged with the external id.
func (c *Client) OrderClose(ctx context.Context, req OrderCloseRequest) ([]ClosedOrder, error) {
	order, ok := c.orders.FindByComment(EncodeComment(req.ExternalID))
	if !ok {
		return nil, ErrOrderNotFound
	}
	sym, ok := c.instruments.SymbolByName(req.SymbolName)
	if !ok {
		return nil, ErrSymbolNotFound
	}
	volumeDigits := c.instruments.VolumeDigits(sym)

	orders, err := c.call(ctx, mobius.CmdOrderClose, mobius.OrderCloseParams{
		Ticket: order.Ticket,
		Volume: order.Volume,
	})
	if err != nil {
		return nil, err
	}

	out := make([]ClosedOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, ClosedOrder{
			Ticket:     o.Ticket,
			ClosePrice: toFloat(o.ClosePrice, sym.FractionalDigits),
			Volume:     toFloat(o.Volume, volumeDigits),
		})
	}

	c.logger.Info("order closed",
		zap.Int64("ticket", order.Ticket),
		zap.Int64("external_id", req.ExternalID),
		zap.Int("orders", len(out)),
	)
	return out, nil
}

type callResult struct {
	orders []mobius.Order
	err    error
}

// call issues an RPC whose reply is a list of orders and waits for it.
// There is no timeout beyond ctx.
func (c *Client) call(ctx context.Context, cmd string, payload any) ([]mobius.Order, error) {
	done := make(chan callResult, 1)

	err := c.transport.Send(cmd, payload, func(result json.RawMessage, err error) {
		if err != nil {
			done <- callResult{err: err}
			return
		}
		var orders []mobius.Order
		if err := json.Unmarshal(result, &orders); err != nil {
			done <- callResult{err: fmt.Errorf("decode %s reply: %w", cmd, err)}
			return
		}
		done <- callResult{orders: orders}
	})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-done:
		return r.orders, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
