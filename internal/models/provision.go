package models

// EmptyAccountXML is the provisioning document served once the real payload
// has been consumed or has expired.
const EmptyAccountXML = "<account></account>"

// Hooks are the per-account URLs handed to the softphone and to voip.ms.
type Hooks struct {
	Provision string `json:"provision"`
	Report    string `json:"report"`
	Notify    string `json:"notify"`
	Fetch     string `json:"fetch"`
	Send      string `json:"send"`
	Balance   string `json:"balance,omitempty"`
	Rate      string `json:"rate,omitempty"`
}

// Balance is the softphone balance-check response.
type Balance struct {
	BalanceString string  `json:"balanceString"`
	Balance       float64 `json:"balance"`
	Currency      string  `json:"currency"`
}

// Rates is the softphone rate-check response.
type Rates struct {
	CallRateString    string `json:"callRateString"`
	MessageRateString string `json:"messageRateString"`
}
