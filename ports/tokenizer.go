package ports

import "time"

// OperatorSession is the identity behind a control surface token
type OperatorSession struct {
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Tokenizer converts between operator sessions and bearer tokens
type Tokenizer interface {
	SessionToToken(session *OperatorSession) (string, error)
	TokenToSession(token string) (*OperatorSession, error)
}
