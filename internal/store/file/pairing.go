package file

import (
	"github.com/sprklai/mesoclaw/internal/pairing"
	"github.com/sprklai/mesoclaw/internal/store"
)

// FilePairingStore adapts pairing.Service to store.PairingStore.
type FilePairingStore struct {
	svc *pairing.Service
}

func NewFilePairingStore(svc *pairing.Service) *FilePairingStore {
	return &FilePairingStore{svc: svc}
}

func (f *FilePairingStore) IsPaired(senderID, channel string) bool {
	return f.svc.IsPaired(senderID, channel)
}

func (f *FilePairingStore) RequestPairing(senderID, channel, chatID, agentKey string) (string, error) {
	return f.svc.RequestPairing(senderID, channel, chatID, agentKey)
}

func (f *FilePairingStore) ApprovePairing(code string) (string, error) {
	return f.svc.ApprovePairing(code)
}

func (f *FilePairingStore) ListPending() []store.PendingPairing {
	pending := f.svc.ListPending()
	out := make([]store.PendingPairing, 0, len(pending))
	for _, p := range pending {
		out = append(out, store.PendingPairing{
			Code: p.Code, SenderID: p.SenderID, Channel: p.Channel,
			ChatID: p.ChatID, AgentKey: p.AgentKey, CreatedAt: p.CreatedAt,
		})
	}
	return out
}
