package googlesheets

import (
	"time"

	"github.com/ideamans/go-sheetrec"
	"google.golang.org/api/sheets/v4"
)

// Config represents configuration specific to the Google Sheets backend
type Config struct {
	ValueRenderOption string   // How read values are rendered (default: UNFORMATTED_VALUE)
	ValueInputOption  string   // How written values are interpreted (default: USER_ENTERED)
	Subject           string   // Account to impersonate with domain-wide delegation
	Scopes            []string // OAuth scopes (default: spreadsheets)
}

const (
	defaultValueRenderOption = "UNFORMATTED_VALUE"
	defaultValueInputOption  = "USER_ENTERED"
	dateTimeRenderOption     = "SERIAL_NUMBER"
)

func (c *Config) applyDefaults() {
	if c.ValueRenderOption == "" {
		c.ValueRenderOption = defaultValueRenderOption
	}
	if c.ValueInputOption == "" {
		c.ValueInputOption = defaultValueInputOption
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{sheets.SpreadsheetsScope}
	}
}

// DefaultClientConfig returns the recommended client configuration for Google Sheets
func DefaultClientConfig() *sheetrec.Config {
	return &sheetrec.Config{
		MaxAttempts: 10,
		BackoffUnit: time.Second,
	}
}
