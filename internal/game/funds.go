package game

// Funds is the chip source a channel debits bets from and credits payouts
// to. Cash channels use the wallet; tournament tables use the controller's
// stack book. Debits that would overdraw fail with an error matching
// ErrInsufficientFunds and leave no partial mutation.
type Funds interface {
	Balance(login string) int64
	Debit(login string, amount int64, ref string) error
	Credit(login string, amount int64, ref string) error
}
