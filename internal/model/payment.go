package model

// ChatUser identifies the user behind an inbound update.
type ChatUser struct {
	ID       int64
	Username string
}

// Invoice is what the messenger renders as a payable invoice.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Label       string
	Amount      int64
}

// StarPayment is the successful-payment notification from the provider.
type StarPayment struct {
	ChargeID         string
	ProviderChargeID string
	Payload          string
	Currency         string
	Total            int64
}
