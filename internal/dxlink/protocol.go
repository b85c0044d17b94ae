package dxlink

import (
	"encoding/json"
	"errors"
)

// MessageType is the "type" discriminator carried by every dxLink frame.
type MessageType string

const (
	MsgSetup            MessageType = "SETUP"
	MsgAuth             MessageType = "AUTH"
	MsgAuthState        MessageType = "AUTH_STATE"
	MsgChannelRequest   MessageType = "CHANNEL_REQUEST"
	MsgChannelOpened    MessageType = "CHANNEL_OPENED"
	MsgChannelClosed    MessageType = "CHANNEL_CLOSED"
	MsgChannelCancel    MessageType = "CHANNEL_CANCEL"
	MsgFeedSetup        MessageType = "FEED_SETUP"
	MsgFeedConfig       MessageType = "FEED_CONFIG"
	MsgFeedSubscription MessageType = "FEED_SUBSCRIPTION"
	MsgFeedData         MessageType = "FEED_DATA"
	MsgKeepalive        MessageType = "KEEPALIVE"
	MsgError            MessageType = "ERROR"
)

const (
	controlChannel = 0

	protocolVersion   = "0.1-DXF-JS/0.3.0"
	serviceFeed       = "FEED"
	contractAuto      = "AUTO"
	dataFormatCompact = "COMPACT"
	eventTypeQuote    = "Quote"

	authUnauthorized = "UNAUTHORIZED"
	authAuthorized   = "AUTHORIZED"
)

// quoteFields is the field order requested for Quote events. DecodeQuotes
// relies on it.
var quoteFields = []string{"eventType", "eventSymbol", "bidPrice", "askPrice", "bidSize", "askSize"}

var (
	// ErrProtocol marks a frame that could not be decoded or arrived out of
	// sequence. Such frames are logged and skipped.
	ErrProtocol = errors.New("dxlink: protocol error")
	// ErrChannelClosed is reported when the server closes the feed channel
	// before the snapshot completes.
	ErrChannelClosed = errors.New("dxlink: feed channel closed by server")
)

// Message is the envelope for every frame. Only the fields used by a given
// type are set.
type Message struct {
	Type    MessageType `json:"type"`
	Channel int         `json:"channel"`

	// SETUP
	Version                string `json:"version,omitempty"`
	KeepaliveTimeout       int    `json:"keepaliveTimeout,omitempty"`
	AcceptKeepaliveTimeout int    `json:"acceptKeepaliveTimeout,omitempty"`

	// AUTH, AUTH_STATE
	Token  string `json:"token,omitempty"`
	State  string `json:"state,omitempty"`
	UserID string `json:"userId,omitempty"`

	// CHANNEL_REQUEST, CHANNEL_OPENED
	Service    string            `json:"service,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`

	// FEED_SETUP, FEED_CONFIG
	AcceptAggregationPeriod float64             `json:"acceptAggregationPeriod,omitempty"`
	AcceptDataFormat        string              `json:"acceptDataFormat,omitempty"`
	AcceptEventFields       map[string][]string `json:"acceptEventFields,omitempty"`
	AggregationPeriod       float64             `json:"aggregationPeriod,omitempty"`
	DataFormat              string              `json:"dataFormat,omitempty"`

	// FEED_SUBSCRIPTION
	Reset bool           `json:"reset,omitempty"`
	Add   []Subscription `json:"add,omitempty"`

	// FEED_DATA
	Data json.RawMessage `json:"data,omitempty"`

	// ERROR
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type Subscription struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

func setupMessage(keepaliveTimeout, acceptKeepaliveTimeout int) Message {
	return Message{
		Type:                   MsgSetup,
		Channel:                controlChannel,
		Version:                protocolVersion,
		KeepaliveTimeout:       keepaliveTimeout,
		AcceptKeepaliveTimeout: acceptKeepaliveTimeout,
	}
}

func authMessage(token string) Message {
	return Message{Type: MsgAuth, Channel: controlChannel, Token: token}
}

func keepaliveMessage() Message {
	return Message{Type: MsgKeepalive, Channel: controlChannel}
}

func channelRequestMessage(channel int) Message {
	return Message{
		Type:       MsgChannelRequest,
		Channel:    channel,
		Service:    serviceFeed,
		Parameters: map[string]string{"contract": contractAuto},
	}
}

func feedSetupMessage(channel int, aggregationPeriod float64) Message {
	return Message{
		Type:                    MsgFeedSetup,
		Channel:                 channel,
		AcceptAggregationPeriod: aggregationPeriod,
		AcceptDataFormat:        dataFormatCompact,
		AcceptEventFields:       map[string][]string{eventTypeQuote: quoteFields},
	}
}

func feedSubscriptionMessage(channel int, symbols []string) Message {
	add := make([]Subscription, 0, len(symbols))
	for _, s := range symbols {
		add = append(add, Subscription{Type: eventTypeQuote, Symbol: s})
	}
	return Message{Type: MsgFeedSubscription, Channel: channel, Reset: true, Add: add}
}

// channelScoped reports whether t only makes sense on a feed channel.
func channelScoped(t MessageType) bool {
	switch t {
	case MsgChannelOpened, MsgChannelClosed, MsgFeedConfig, MsgFeedData:
		return true
	}
	return false
}
