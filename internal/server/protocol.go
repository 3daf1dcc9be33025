package server

import (
	"encoding/json"

	"github.com/crossex/cross/internal/history"
)

// Request is one line-framed client frame: the operation name plus an
// operation-specific values object, decoded in a second step so a bad
// payload yields a malformed-request reply instead of a dropped frame.
type Request struct {
	Operation string          `json:"operation"`
	Values    json.RawMessage `json:"values"`
}

// Per-operation value payloads

type loginValues struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UDPPort  int    `json:"udpPort"`
}

type updateCredentialsValues struct {
	Username    string `json:"username"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type limitOrderValues struct {
	Type  string `json:"type"`
	Size  int64  `json:"size"`
	Price int64  `json:"price"`
}

type marketOrderValues struct {
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type stopOrderValues struct {
	Type  string `json:"type"`
	Size  int64  `json:"size"`
	Price int64  `json:"price"`
}

type cancelOrderValues struct {
	OrderID int64 `json:"orderId"`
}

type priceHistoryValues struct {
	Month string `json:"month"`
}

type priceAlertValues struct {
	ThresholdPrice int64 `json:"thresholdPrice"`
}

// Reply envelopes

// CodeResponse carries a numeric outcome code plus a human-readable
// message
type CodeResponse struct {
	Response     int    `json:"response"`
	ErrorMessage string `json:"errorMessage"`
}

// NewCodeResponse creates a code reply
func NewCodeResponse(code int, message string) *CodeResponse {
	return &CodeResponse{Response: code, ErrorMessage: message}
}

// OrderResponse carries the allocated order id, -1 on failure
type OrderResponse struct {
	OrderID int64 `json:"orderId"`
}

// MulticastInfo tells an alert subscriber where threshold broadcasts are
// published
type MulticastInfo struct {
	MulticastAddress string   `json:"multicastAddress"`
	MulticastPort    int      `json:"multicastPort"`
	ActiveUsers      []string `json:"activeUsers"`
}

// PriceAlertResponse is the reply to registerPriceAlert
type PriceAlertResponse struct {
	Response      int            `json:"response"`
	MulticastInfo *MulticastInfo `json:"multicastInfo,omitempty"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
}

// PriceHistoryResponse is the reply to getPriceHistory; on success it is
// the month summary itself
type PriceHistoryResponse = history.MonthSummary
