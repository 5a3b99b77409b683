package domain

import "time"

type WebsiteID string

type ValidatorID string

type TickID string

// TickStatus is the classified outcome of a single probe.
type TickStatus string

const (
	StatusGood    TickStatus = "Good"
	StatusBad     TickStatus = "Bad"
	StatusUnknown TickStatus = "Unknown"
)

// Website is a monitored URL owned by an account. A disabled website is
// excluded from probing targets and from active listings; its ticks remain.
type Website struct {
	ID        WebsiteID `json:"id"`
	URL       string    `json:"url"`
	UserID    string    `json:"userId"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validator is a registered probing agent, identified externally by its
// public key. PublicKey is unique; reports naming an unknown key are
// rejected, never auto-registered.
type Validator struct {
	ID         ValidatorID `json:"id"`
	PublicKey  string      `json:"publicKey"`
	Location   string      `json:"location,omitempty"`
	LastSeenAt time.Time   `json:"lastSeenAt"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Tick is one immutable observation of a website by a validator.
// CreatedAt is assigned by the collector at ingestion time, never by the
// validator, so history ordering cannot be skewed by agent clocks.
type Tick struct {
	ID          TickID      `json:"id"`
	WebsiteID   WebsiteID   `json:"websiteId"`
	ValidatorID ValidatorID `json:"validatorId"`
	Status      TickStatus  `json:"status"`
	LatencyMS   float64     `json:"latency"`
	CreatedAt   time.Time   `json:"createdAt"`
}
