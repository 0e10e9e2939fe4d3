package gh

import "context"

// User is the authenticated identity record.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Email is one address attached to the authenticated user.
type Email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GetUser fetches the authenticated user's profile. Also the cheapest way to
// validate a token: a 401 here means the credential is dead.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListEmails fetches the authenticated user's email addresses. Needed when
// the profile email is private and therefore empty in GetUser.
func (c *Client) ListEmails(ctx context.Context) ([]Email, error) {
	var emails []Email
	if err := c.get(ctx, "/user/emails", &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// PrimaryEmail returns the user's primary address, or "" when none is marked
// primary.
func PrimaryEmail(emails []Email) string {
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	return ""
}
