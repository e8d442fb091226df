package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/chatmate/internal/core/identity"
)

const (
	EventTypeAssistantCreated = "assistant.created"
	EventTypeAccessGranted    = "access.granted"
	EventTypeAccessRevoked    = "access.revoked"
	EventTypePaymentReceived  = "payment.received"
	EventTypeTipReceived      = "tip.received"
)

var AllTypes = []string{
	EventTypeAssistantCreated,
	EventTypeAccessGranted,
	EventTypeAccessRevoked,
	EventTypePaymentReceived,
	EventTypeTipReceived,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type AssistantCreatedEvent struct {
	BaseEvent
	Owner     identity.ID `json:"owner"`
	Username  string      `json:"username"`
	AccessFee uint64      `json:"access_fee"`
}

func NewAssistantCreatedEvent(owner identity.ID, username string, accessFee uint64) *AssistantCreatedEvent {
	return &AssistantCreatedEvent{
		BaseEvent: newBase(EventTypeAssistantCreated, map[string]interface{}{
			"owner":      owner.String(),
			"username":   username,
			"access_fee": accessFee,
		}),
		Owner:     owner,
		Username:  username,
		AccessFee: accessFee,
	}
}

type AccessGrantedEvent struct {
	BaseEvent
	Assistant      identity.ID `json:"assistant"`
	Visitor        identity.ID `json:"visitor"`
	PermissionType string      `json:"permission_type"`
	ExpiresAt      *int64      `json:"expires_at,omitempty"`
}

func NewAccessGrantedEvent(assistant, visitor identity.ID, permissionType string, expiresAt *int64) *AccessGrantedEvent {
	data := map[string]interface{}{
		"assistant":       assistant.String(),
		"visitor":         visitor.String(),
		"permission_type": permissionType,
	}
	if expiresAt != nil {
		data["expires_at"] = *expiresAt
	}
	return &AccessGrantedEvent{
		BaseEvent:      newBase(EventTypeAccessGranted, data),
		Assistant:      assistant,
		Visitor:        visitor,
		PermissionType: permissionType,
		ExpiresAt:      expiresAt,
	}
}

type AccessRevokedEvent struct {
	BaseEvent
	Assistant identity.ID `json:"assistant"`
	Visitor   identity.ID `json:"visitor"`
}

func NewAccessRevokedEvent(assistant, visitor identity.ID) *AccessRevokedEvent {
	return &AccessRevokedEvent{
		BaseEvent: newBase(EventTypeAccessRevoked, map[string]interface{}{
			"assistant": assistant.String(),
			"visitor":   visitor.String(),
		}),
		Assistant: assistant,
		Visitor:   visitor,
	}
}

type PaymentReceivedEvent struct {
	BaseEvent
	Assistant identity.ID `json:"assistant"`
	Payer     identity.ID `json:"payer"`
	Amount    uint64      `json:"amount"`
}

func NewPaymentReceivedEvent(assistant, payer identity.ID, amount uint64) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseEvent: newBase(EventTypePaymentReceived, map[string]interface{}{
			"assistant": assistant.String(),
			"payer":     payer.String(),
			"amount":    amount,
		}),
		Assistant: assistant,
		Payer:     payer,
		Amount:    amount,
	}
}

type TipReceivedEvent struct {
	BaseEvent
	Assistant identity.ID `json:"assistant"`
	Tipper    identity.ID `json:"tipper"`
	Amount    uint64      `json:"amount"`
}

func NewTipReceivedEvent(assistant, tipper identity.ID, amount uint64) *TipReceivedEvent {
	return &TipReceivedEvent{
		BaseEvent: newBase(EventTypeTipReceived, map[string]interface{}{
			"assistant": assistant.String(),
			"tipper":    tipper.String(),
			"amount":    amount,
		}),
		Assistant: assistant,
		Tipper:    tipper,
		Amount:    amount,
	}
}
