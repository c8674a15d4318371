package session

// Error is a domain failure raised before any upstream call is made.
// Its text is what downstream callers see.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrSymbolNotFound Error = "SymbolNotFound"
	ErrOrderNotFound  Error = "OrderNotFound"
)
