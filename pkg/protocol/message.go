package protocol

// MessageType identifies a control-plane message on the mosaicd socket.
type MessageType string

// Control message type constants.
const (
	MsgTrigger   MessageType = "TRIGGER"
	MsgSubscribe MessageType = "SUBSCRIBE"
	MsgStatus    MessageType = "STATUS"
	MsgACK       MessageType = "ACK"
)

// Message is the line-delimited JSON envelope exchanged on the control
// socket. Exactly one payload pointer is non-nil, matching Type.
// Channel-B study traffic does NOT use this envelope: subscribers receive
// flat StudyData / StudyEvent lines (see wire.go).
type Message struct {
	Type      MessageType       `json:"type"`
	Trigger   *TriggerPayload   `json:"trigger,omitempty"`
	Subscribe *SubscribePayload `json:"subscribe,omitempty"`
	Status    *StatusPayload    `json:"status,omitempty"`
	ACK       *ACKPayload       `json:"ack,omitempty"`
}

// TriggerPayload requests that an action be queued on the executor.
type TriggerPayload struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
}

// SubscribePayload registers the connection as a channel-B consumer.
// The connection stays open; study messages are written to it as they occur.
type SubscribePayload struct {
	ClientID string `json:"client_id,omitempty"`
}

// StatusPayload requests a one-shot state summary.
type StatusPayload struct{}

// ACKPayload is the daemon's reply to TRIGGER and STATUS messages.
type ACKPayload struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}
