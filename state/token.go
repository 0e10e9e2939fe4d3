package state

// ReadToken returns the persisted access token, or "" when logged out.
func (s *Store) ReadToken() (string, error) {
	return s.Get(KeyToken)
}

// WriteToken persists the access token.
func (s *Store) WriteToken(token string) error {
	return s.Set(KeyToken, token)
}

// ClearToken removes the persisted access token. Idempotent.
func (s *Store) ClearToken() error {
	return s.Delete(KeyToken)
}
