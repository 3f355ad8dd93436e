package model

// Session is what the console knows about one browser: who is signed in and
// with which credentials. A nil User with non-nil Tokens means the profile
// has not been fetched yet.
type Session struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

func (s Session) Authenticated() bool {
	return s.Tokens != nil && s.Tokens.AccessToken != ""
}

func (s Session) Empty() bool {
	return s.User == nil && s.Tokens == nil
}

func (s Session) Clone() Session {
	return Session{User: s.User.Clone(), Tokens: s.Tokens.Clone()}
}
