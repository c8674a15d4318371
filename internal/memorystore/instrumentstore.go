package memorystore

import (
	"sync"

	"tradegateway/pkg/mobius"
)

// InstrumentStore holds the symbol and currency snapshot received at session
// initialization.
type InstrumentStore struct {
	mu         sync.RWMutex
	symbols    map[int64]mobius.Symbol
	currencies map[int64]mobius.Currency
}

func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		symbols:    make(map[int64]mobius.Symbol),
		currencies: make(map[int64]mobius.Currency),
	}
}

// Replace swaps in a new snapshot; previous contents are dropped, not merged.
func (s *InstrumentStore) Replace(symbols map[int64]mobius.Symbol, currencies map[int64]mobius.Currency) {
	sym := make(map[int64]mobius.Symbol, len(symbols))
	for id, v := range symbols {
		sym[id] = v
	}
	cur := make(map[int64]mobius.Currency, len(currencies))
	for id, v := range currencies {
		cur[id] = v
	}

	s.mu.Lock()
	s.symbols = sym
	s.currencies = cur
	s.mu.Unlock()
}

func (s *InstrumentStore) Symbol(id int64) (mobius.Symbol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.symbols[id]
	return sym, ok
}

// SymbolByName scans for an exact name match.
func (s *InstrumentStore) SymbolByName(name string) (mobius.Symbol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sym := range s.symbols {
		if sym.Name == name {
			return sym, true
		}
	}
	return mobius.Symbol{}, false
}

func (s *InstrumentStore) Currency(id int64) (mobius.Currency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.currencies[id]
	return cur, ok
}

// VolumeDigits returns the volume precision of the symbol's margin currency,
// or 0 when that currency is unknown.
func (s *InstrumentStore) VolumeDigits(sym mobius.Symbol) int32 {
	cur, ok := s.Currency(sym.MarginCurrencyID)
	if !ok {
		return 0
	}
	return cur.VolumeFractionalDigits
}

// Counts returns the number of symbols and currencies held.
func (s *InstrumentStore) Counts() (symbols, currencies int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols), len(s.currencies)
}
