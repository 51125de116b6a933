package dto

import "time"

// TipResponse is a tip as served to a client. VIP tips the caller is not
// entitled to keep their identity fields but carry a redacted placeholder
// instead of Content/TicketSnapshots.
type TipResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Sport           string    `json:"sport"`
	League          string    `json:"league"`
	Market          string    `json:"market"`
	Odds            string    `json:"odds"`
	IsVIP           bool      `json:"is_vip"`
	VIPLocked       bool      `json:"vip_locked"`
	Content         string    `json:"content"`
	TicketSnapshots string    `json:"ticket_snapshots,omitempty"`
	MatchAt         time.Time `json:"match_at"`
	Result          string    `json:"result"`
}

type TipListResponse struct {
	Tips []*TipResponse `json:"tips"`
}

type RedeemRequest struct {
	Code string `json:"code"`
}

type TokenResponse struct {
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	TipID     *uint     `json:"tip_id,omitempty"`
	Quantity  int32     `json:"quantity"`
	Used      int32     `json:"used"`
	ExpiresAt time.Time `json:"expires_at"`
	BatchID   string    `json:"batch_id"`
}

type TokenListResponse struct {
	Tokens []*TokenResponse `json:"tokens"`
}

type AdminMintRequest struct {
	UserID    string `json:"user_id"`
	Count     int    `json:"count"`
	ValidDays int    `json:"valid_days"`
	TipID     *uint  `json:"tip_id,omitempty"`
}

type AdminMintResponse struct {
	BatchID string   `json:"batch_id"`
	Codes   []string `json:"codes"`
}
