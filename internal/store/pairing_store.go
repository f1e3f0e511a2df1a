package store

// PairingStore gates direct-message access on unfamiliar channel accounts
// behind a short approval code, so a freshly wired Discord/Telegram bot
// doesn't respond to strangers before its owner has approved them.
type PairingStore interface {
	// IsPaired reports whether senderID has already been approved on channel.
	IsPaired(senderID, channel string) bool

	// RequestPairing records (or refreshes) a pairing request for senderID on
	// channel and returns the short code the owner must approve.
	RequestPairing(senderID, channel, chatID, agentKey string) (code string, err error)

	// ApprovePairing marks the request matching code as paired. Returns the
	// approved sender ID, or an error if the code is unknown or expired.
	ApprovePairing(code string) (senderID string, err error)

	// ListPending returns outstanding (unapproved) pairing requests.
	ListPending() []PendingPairing
}

// PendingPairing is one outstanding pairing request awaiting owner approval.
type PendingPairing struct {
	Code      string `json:"code"`
	SenderID  string `json:"senderId"`
	Channel   string `json:"channel"`
	ChatID    string `json:"chatId"`
	AgentKey  string `json:"agentKey"`
	CreatedAt int64  `json:"createdAt"` // unix seconds
}
