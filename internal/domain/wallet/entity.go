package wallet

// PaymentMethod is a payout or funding channel offered to users
type PaymentMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Methods lists the supported channels in display order
var Methods = []PaymentMethod{
	{ID: "easypaisa", Name: "Easypaisa"},
	{ID: "jazzcash", Name: "JazzCash"},
	{ID: "binance", Name: "Binance (USDT)"},
	{ID: "payeer", Name: "Payeer"},
	{ID: "bank", Name: "Bank Transfer"},
}

func methodIDs() []string {
	ids := make([]string, len(Methods))
	for i, m := range Methods {
		ids[i] = m.ID
	}
	return ids
}

// LookupMethod finds a method by id
func LookupMethod(id string) (PaymentMethod, bool) {
	for _, m := range Methods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}
