// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"fmt"

	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/interfaces"
	"github.com/ngodn/soluna/pkg/logging"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config     *config.Config
	Log        *logging.Logger
	Source     interfaces.Source
	HTTPClient interfaces.HTTPClient
	BaseURL    string
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	return &Context{
		Config:  cfg,
		Log:     log,
		BaseURL: baseURL,
	}
}

// WithSource sets the content source.
func (c *Context) WithSource(src interfaces.Source) *Context {
	c.Source = src
	return c
}

// WithHTTPClient sets the outbound HTTP client.
func (c *Context) WithHTTPClient(client interfaces.HTTPClient) *Context {
	c.HTTPClient = client
	return c
}
