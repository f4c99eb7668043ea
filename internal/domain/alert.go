package domain

import "time"

// Alert is the structured payload handed to the notification collaborator.
type Alert struct {
	Symbol     string    `json:"symbol"`
	Cadence    string    `json:"cadence"`
	Direction  Direction `json:"direction"`
	Kind       string    `json:"kind"`
	Score      int       `json:"score,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Price      float64   `json:"price,omitempty"`
	Reasons    []string  `json:"reasons,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	CountToday int       `json:"count_today"`
	CreatedAt  time.Time `json:"created_at"`
}

// ThrottleRecord tracks alert throttling per (symbol, cadence, direction) key.
// CountToday resets at the local-midnight boundary.
type ThrottleRecord struct {
	Symbol      string    `json:"symbol"`
	Cadence     string    `json:"cadence"`
	Direction   Direction `json:"direction"`
	LastFiredAt time.Time `json:"last_fired_at"`
	CountToday  int       `json:"count_today"`
}

// ThrottleKey is the composite map key for throttle records.
func ThrottleKey(symbol, cadence string, direction Direction) string {
	return symbol + "|" + cadence + "|" + string(direction)
}
