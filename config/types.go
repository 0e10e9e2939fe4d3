package config

import (
	"github.com/mitchellh/mapstructure"
)

// Config is the parsed inkwell.yml.
type Config struct {
	Version  string         `yaml:"version,omitempty" json:"version,omitempty"`
	Provider ProviderConfig `yaml:"provider,omitempty" json:"provider,omitempty"`
	Auth     AuthConfig     `yaml:"auth,omitempty" json:"auth,omitempty"`
	Editor   EditorConfig   `yaml:"editor,omitempty" json:"editor,omitempty"`

	// Extensions holds tool-specific sections (e.g. "logging") that are not
	// part of the core schema. Decoded on demand via UnmarshalExtension.
	Extensions map[string]interface{} `yaml:",inline" json:"-"`
}

// ProviderConfig describes the Git hosting provider's REST surface.
type ProviderConfig struct {
	// APIBaseURL is the REST API root, e.g. https://api.github.com.
	APIBaseURL string `yaml:"api_base_url,omitempty" json:"api_base_url,omitempty"`

	// CommitBranch is the branch saves are committed to. Empty means the
	// repository's default branch.
	CommitBranch string `yaml:"commit_branch,omitempty" json:"commit_branch,omitempty"`

	// CommitMessage is the commit message template. The literal "{path}" is
	// replaced with the saved file's path.
	CommitMessage string `yaml:"commit_message,omitempty" json:"commit_message,omitempty"`
}

// AuthConfig describes the OAuth endpoints and client identity.
type AuthConfig struct {
	ClientID      string   `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	AuthorizeURL  string   `yaml:"authorize_url,omitempty" json:"authorize_url,omitempty"`
	DeviceAuthURL string   `yaml:"device_auth_url,omitempty" json:"device_auth_url,omitempty"`
	TokenURL      string   `yaml:"token_url,omitempty" json:"token_url,omitempty"`

	// ProxyURL is the trusted server-side exchange proxy. It holds the
	// client secret; this process never sees it.
	ProxyURL string `yaml:"proxy_url,omitempty" json:"proxy_url,omitempty"`

	Scopes []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// EditorConfig describes the local editing surface.
type EditorConfig struct {
	// Command is the external editor launched by `inkwell edit`. Empty means
	// $EDITOR.
	Command string `yaml:"command,omitempty" json:"command,omitempty"`

	// ListenAddr is the address `inkwell serve` binds the websocket surface
	// to.
	ListenAddr string `yaml:"listen_addr,omitempty" json:"listen_addr,omitempty"`
}

// Defaults for a stock GitHub setup.
const (
	DefaultAPIBaseURL    = "https://api.github.com"
	DefaultAuthorizeURL  = "https://github.com/login/oauth/authorize"
	DefaultDeviceAuthURL = "https://github.com/login/device/code"
	DefaultTokenURL      = "https://github.com/login/oauth/access_token"
	DefaultCommitMessage = "Update {path} via Inkwell"
	DefaultListenAddr    = "127.0.0.1:7337"
)

// DefaultScopes grant repository write access plus the email read used by
// whoami.
var DefaultScopes = []string{"repo", "user:email"}

// ApplyDefaults fills zero-valued fields with stock GitHub settings.
func (c *Config) ApplyDefaults() {
	if c.Provider.APIBaseURL == "" {
		c.Provider.APIBaseURL = DefaultAPIBaseURL
	}
	if c.Provider.CommitMessage == "" {
		c.Provider.CommitMessage = DefaultCommitMessage
	}
	if c.Auth.AuthorizeURL == "" {
		c.Auth.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.Auth.DeviceAuthURL == "" {
		c.Auth.DeviceAuthURL = DefaultDeviceAuthURL
	}
	if c.Auth.TokenURL == "" {
		c.Auth.TokenURL = DefaultTokenURL
	}
	if len(c.Auth.Scopes) == 0 {
		c.Auth.Scopes = append([]string(nil), DefaultScopes...)
	}
	if c.Editor.ListenAddr == "" {
		c.Editor.ListenAddr = DefaultListenAddr
	}
}

// UnmarshalExtension decodes a named extension section into out.
// Returns nil without touching out when the section is absent.
func (c *Config) UnmarshalExtension(key string, out interface{}) error {
	raw, ok := c.Extensions[key]
	if !ok {
		return nil
	}
	return mapstructure.Decode(raw, out)
}
