// Package coach generates the accountability coach's replies.
package coach

import (
	"context"
)

// FallbackResponse is used when a generator fails to produce a reply.
const FallbackResponse = "The winter has frozen my words. Try again, if you dare."

// ResponseGenerator produces a coach reply to a user message. The context
// string carries whatever situational detail the caller wants the generator
// to see (recent activity, current stats).
type ResponseGenerator interface {
	Respond(ctx context.Context, userID, message, context string) (string, error)
}

// StaticPlaceholder is a ResponseGenerator that always returns the same
// line. It stands in until a real generator is plugged in behind the same
// interface.
type StaticPlaceholder struct{}

// NewStaticPlaceholder creates the placeholder generator.
func NewStaticPlaceholder() *StaticPlaceholder {
	return &StaticPlaceholder{}
}

func (StaticPlaceholder) Respond(ctx context.Context, userID, message, context string) (string, error) {
	return "The cold whispers: Keep grinding. The frost doesn't care about excuses.", nil
}
