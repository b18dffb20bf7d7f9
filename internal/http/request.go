package http

import (
	"encoding/json"
	"strings"

	"donatrack/internal/core"
)

// amountValue accepts the donation amount as either a JSON number or a
// numeric string. Form frontends send strings, API clients send
// numbers; both end up parsed by the same cents parser.
type amountValue struct {
	raw string
	set bool
}

func (a *amountValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		a.raw = inner
	} else {
		a.raw = s
	}
	a.set = true
	return nil
}

// donationRequest is the wire shape of a create request.
type donationRequest struct {
	DonorName     string      `json:"donorName"`
	DonorEmail    string      `json:"donorEmail"`
	Amount        amountValue `json:"amount"`
	DonationType  string      `json:"donationType"`
	DonorPhone    string      `json:"donorPhone"`
	DonorAddress  string      `json:"donorAddress"`
	PublicMessage string      `json:"publicMessage"`
	IsAnonymous   bool        `json:"isAnonymous"`
}

// toDonation converts the request into a domain donation. A missing
// or unparseable amount maps to the amount validation error so the
// handler answers 400 rather than 500.
func (req *donationRequest) toDonation() (*core.Donation, error) {
	if !req.Amount.set {
		return nil, core.ErrInvalidAmount
	}
	cents, err := core.ParseAmountToCents(req.Amount.raw)
	if err != nil {
		return nil, err
	}
	return &core.Donation{
		DonorName:     req.DonorName,
		DonorEmail:    req.DonorEmail,
		Amount:        core.Money{Cents: cents},
		DonationType:  req.DonationType,
		DonorPhone:    req.DonorPhone,
		DonorAddress:  req.DonorAddress,
		PublicMessage: req.PublicMessage,
		IsAnonymous:   req.IsAnonymous,
	}, nil
}
