package dxlink

// State is the position of a Session in the dxLink handshake.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSetupSent
	StateUnauthorized
	StateAuthorizing
	StateAuthorized
	StateChannelRequested
	StateChannelOpen
	StateFeedConfiguring
	StateSubscribed
	StateStreaming
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateDisconnected:     "DISCONNECTED",
	StateConnecting:       "CONNECTING",
	StateSetupSent:        "SETUP_SENT",
	StateUnauthorized:     "UNAUTHORIZED",
	StateAuthorizing:      "AUTHORIZING",
	StateAuthorized:       "AUTHORIZED",
	StateChannelRequested: "CHANNEL_REQUESTED",
	StateChannelOpen:      "CHANNEL_OPEN",
	StateFeedConfiguring:  "FEED_CONFIGURING",
	StateSubscribed:       "SUBSCRIBED",
	StateStreaming:        "STREAMING",
	StateClosing:          "CLOSING",
	StateClosed:           "CLOSED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// anyState keys transitions accepted regardless of the current state.
const anyState State = -1

type transitionKey struct {
	state State
	msg   MessageType
}

type transition func(*Session, Message) error

// transitions is the full inbound state machine. A (state, type) pair that
// is not listed here, and has no anyState entry, is a protocol error.
func transitions() map[transitionKey]transition {
	t := map[transitionKey]transition{
		{anyState, MsgSetup}:         (*Session).onSetup,
		{anyState, MsgKeepalive}:     (*Session).onKeepalive,
		{anyState, MsgError}:         (*Session).onError,
		{anyState, MsgChannelClosed}: (*Session).onChannelClosed,

		{StateChannelRequested, MsgChannelOpened}: (*Session).onChannelOpened,
		{StateFeedConfiguring, MsgFeedConfig}:     (*Session).onFeedConfig,
		{StateSubscribed, MsgFeedConfig}:          (*Session).onFeedReconfig,
		{StateStreaming, MsgFeedConfig}:           (*Session).onFeedReconfig,
		{StateSubscribed, MsgFeedData}:            (*Session).onFeedData,
		{StateStreaming, MsgFeedData}:             (*Session).onFeedData,
	}
	for _, st := range []State{StateSetupSent, StateUnauthorized, StateAuthorizing} {
		t[transitionKey{st, MsgAuthState}] = (*Session).onAuthState
	}
	return t
}
