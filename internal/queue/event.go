// Package queue defines message payloads exchanged over the message broker.
package queue

// ClientCreatedEvent is published when a company record is registered.  It
// carries enough for downstream consumers (audit trail, notifications) to
// act without querying the primary database.
type ClientCreatedEvent struct {
	ClientID    int64  `json:"client_id"`
	UserID      int64  `json:"user_id"`
	RazaoSocial string `json:"razao_social"`
	CNPJ        string `json:"cnpj"`
	CreatedAt   string `json:"created_at"`
}
