package entities

type AddressQuery struct {
	Limit  int
	Offset int
	Sort   string
	Cursor *string
	Type   string // sent, recv or empty for all
}

// AddressPage is one page of an address history. Cursor is opaque and nil
// once the history is exhausted.
type AddressPage struct {
	Transactions []TransactionRecord
	Cursor       *string
}
