package types

// ReputationExtension is the requirements.extra key that asks the
// facilitator for an ERC-8004 proof of payment at settlement.
const ReputationExtension = "8004-reputation"

// ProofOfPayment is the settled-payment evidence an ERC-8004 reputation
// registry needs before accepting feedback from the payer.
type ProofOfPayment struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	Network         string `json:"network"`
	Payer           string `json:"payer"`
	Payee           string `json:"payee"`
	Amount          string `json:"amount"`
	Token           string `json:"token"`
	Timestamp       int64  `json:"timestamp"`
	PaymentHash     string `json:"paymentHash"`
}
