// Package pairing implements the DM pairing flow: an unfamiliar channel
// account must present a short code, which the instance owner approves out
// of band (via the pairing CLI), before the agent will respond to it.
package pairing

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I

// pairing is one sender's approval state, pending or granted.
type pairing struct {
	Code      string `json:"code"`
	SenderID  string `json:"senderId"`
	Channel   string `json:"channel"`
	ChatID    string `json:"chatId"`
	AgentKey  string `json:"agentKey"`
	CreatedAt int64  `json:"createdAt"`
	Approved  bool   `json:"approved"`
}

type snapshot struct {
	Pairings []*pairing `json:"pairings"`
}

// Service is a file-backed PairingStore implementation. State lives in a
// single JSON file, written atomically (temp file + rename) on every change.
type Service struct {
	mu       sync.Mutex
	path     string
	byKey    map[string]*pairing // senderID+":"+channel -> pairing
	byCode   map[string]*pairing
	expireAfter time.Duration
}

// NewService creates a pairing service persisted at path (empty path means
// in-memory only, useful for tests).
func NewService(path string) *Service {
	s := &Service{
		path:        path,
		byKey:       make(map[string]*pairing),
		byCode:      make(map[string]*pairing),
		expireAfter: 24 * time.Hour,
	}
	s.load()
	return s
}

func key(senderID, channel string) string { return senderID + ":" + channel }

func (s *Service) IsPaired(senderID, channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byKey[key(senderID, channel)]
	return ok && p.Approved
}

func (s *Service) RequestPairing(senderID, channel, chatID, agentKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(senderID, channel)
	if existing, ok := s.byKey[k]; ok && !existing.Approved {
		if time.Since(time.Unix(existing.CreatedAt, 0)) < s.expireAfter {
			return existing.Code, nil
		}
		delete(s.byCode, existing.Code)
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate pairing code: %w", err)
	}

	p := &pairing{
		Code:      code,
		SenderID:  senderID,
		Channel:   channel,
		ChatID:    chatID,
		AgentKey:  agentKey,
		CreatedAt: time.Now().Unix(),
	}
	s.byKey[k] = p
	s.byCode[code] = p
	s.persist()
	return code, nil
}

func (s *Service) ApprovePairing(code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byCode[code]
	if !ok {
		return "", fmt.Errorf("unknown pairing code: %s", code)
	}
	p.Approved = true
	s.persist()
	return p.SenderID, nil
}

func (s *Service) ListPending() []pendingView {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []pendingView
	for _, p := range s.byKey {
		if !p.Approved {
			out = append(out, pendingView{
				Code: p.Code, SenderID: p.SenderID, Channel: p.Channel,
				ChatID: p.ChatID, AgentKey: p.AgentKey, CreatedAt: p.CreatedAt,
			})
		}
	}
	return out
}

// pendingView mirrors store.PendingPairing without importing internal/store,
// which would create an import cycle (store/file imports pairing).
type pendingView struct {
	Code      string
	SenderID  string
	Channel   string
	ChatID    string
	AgentKey  string
	CreatedAt int64
}

func generateCode() (string, error) {
	const length = 6
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

func (s *Service) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return
	}
	for _, p := range snap.Pairings {
		s.byKey[key(p.SenderID, p.Channel)] = p
		s.byCode[p.Code] = p
	}
}

// persist must be called with s.mu held.
func (s *Service) persist() {
	if s.path == "" {
		return
	}
	snap := snapshot{Pairings: make([]*pairing, 0, len(s.byKey))}
	for _, p := range s.byKey {
		snap.Pairings = append(snap.Pairings, p)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}

	dir := filepath.Dir(s.path)
	os.MkdirAll(dir, 0755)

	tmp, err := os.CreateTemp(dir, "pairing-*.tmp")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return
	}
	tmp.Close()
	os.Rename(tmpPath, s.path)
}
