package runner

import "github.com/google/uuid"

// Token identifies one in-flight handler invocation. It is 1:1 with an
// entry in the handler pool for the lifetime of that invocation.
type Token = uuid.UUID

// newToken allocates a fresh, unique handler token.
func newToken() Token {
	return uuid.New()
}

// streamerToken is the sentinel token used for messages originating from
// the initial streamer's goroutine, which is not itself a pool entry.
var streamerToken = Token(uuid.Nil)

// handlerPool tracks currently-running handler invocations by token, so a
// crashed invocation's batch can be reconstituted and requeued. Owned
// exclusively by the dispatcher goroutine.
type handlerPool struct {
	entries map[Token]queuedBatch
}

func newHandlerPool() handlerPool {
	return handlerPool{entries: make(map[Token]queuedBatch)}
}

// Add records a newly-dispatched invocation.
func (p *handlerPool) Add(token Token, qb queuedBatch) {
	p.entries[token] = qb
}

// Remove deletes and returns the record for token, if present.
func (p *handlerPool) Remove(token Token) (queuedBatch, bool) {
	qb, ok := p.entries[token]
	if ok {
		delete(p.entries, token)
	}
	return qb, ok
}

// Len reports the number of in-flight invocations.
func (p *handlerPool) Len() int {
	return len(p.entries)
}
