package amqp

import (
	"encoding/json"
	"time"
)

// DonationCreatedMessage carries only the donation id; the worker
// loads the full record from the ledger so the queue never holds
// donor PII.
type DonationCreatedMessage struct {
	DonationID string    `json:"donation_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDonationCreatedMessage(donationID string) *DonationCreatedMessage {
	return &DonationCreatedMessage{
		DonationID: donationID,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *DonationCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DonationCreatedMessageFromJSON(data []byte) (*DonationCreatedMessage, error) {
	var msg DonationCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
