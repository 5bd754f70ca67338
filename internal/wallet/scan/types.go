package scan

// Wake-up sources reported by Subscriber.Watch.
const (
	SourcePendingTransaction = "pending_tx"
	SourceMinedTransaction   = "mined_tx"
	SourceTokenTransfer      = "token_transfer"
)
