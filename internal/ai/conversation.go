package ai

import "sync"

// Conversation keeps the most recent turns of a chat. Each exchange is one
// user turn plus one model turn; once more than limit exchanges are held the
// oldest one is dropped.
type Conversation struct {
	mu    sync.Mutex
	limit int
	turns []Turn
}

func NewConversation(limit int) *Conversation {
	if limit < 1 {
		limit = 1
	}
	return &Conversation{limit: limit}
}

// History returns a copy of the retained turns, oldest first.
func (c *Conversation) History() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.turns...)
}

// Record appends one exchange and trims the history.
func (c *Conversation) Record(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: RoleUser, Text: question}, Turn{Role: RoleModel, Text: answer})
	if extra := len(c.turns) - 2*c.limit; extra > 0 {
		c.turns = append([]Turn(nil), c.turns[extra:]...)
	}
}
