package bot

import (
	"sync"

	"github.com/mymmrac/telego"
)

type pendingKey struct {
	chatID    int64
	messageID int
}

// pendingMessages retains inbound messages between the keyboard offer and
// the destination pick, so normalization can run at creation time with the
// full message at hand. The map is in-memory only; a button press that
// outlives the process misses here and the user is asked to resend.
type pendingMessages struct {
	mu   sync.Mutex
	byID map[pendingKey]*telego.Message
}

func newPendingMessages() *pendingMessages {
	return &pendingMessages{byID: make(map[pendingKey]*telego.Message)}
}

func (p *pendingMessages) Put(chatID int64, messageID int, message *telego.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[pendingKey{chatID: chatID, messageID: messageID}] = message
}

func (p *pendingMessages) Get(chatID int64, messageID int) (*telego.Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	message, ok := p.byID[pendingKey{chatID: chatID, messageID: messageID}]

	return message, ok
}

func (p *pendingMessages) Delete(chatID int64, messageID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, pendingKey{chatID: chatID, messageID: messageID})
}

// DropChat clears every pending message of one chat, used on logout.
func (p *pendingMessages) DropChat(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.byID {
		if key.chatID == chatID {
			delete(p.byID, key)
		}
	}
}
