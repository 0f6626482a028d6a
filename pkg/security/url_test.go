package security

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		opts URLOptions
		ok   bool
	}{
		{"public https", "https://api.openai.com/v1", ImageURLOptions, true},
		{"http rejected", "http://example.com/cat.png", ImageURLOptions, false},
		{"http allowed", "http://example.com/v1", URLOptions{AllowHTTP: true}, true},
		{"file scheme", "file:///etc/passwd", APIBaseURLOptions, false},
		{"no host", "https:///v1", APIBaseURLOptions, false},
		{"localhost rejected", "https://localhost:8080", ImageURLOptions, false},
		{"mdns rejected", "https://printer.local/x.png", ImageURLOptions, false},
		{"localhost allowed", "http://localhost:11434/v1", APIBaseURLOptions, true},
		{"loopback ip", "https://127.0.0.1/x.png", ImageURLOptions, false},
		{"private ip", "https://10.1.2.3/x.png", ImageURLOptions, false},
		{"mapped loopback", "https://[::ffff:127.0.0.1]/x.png", ImageURLOptions, false},
		{"zoned ipv6", "https://[fe80::1%25eth0]/", ImageURLOptions, false},
		{"zoned ipv6 local allowed", "https://[fe80::1%25eth0]/", APIBaseURLOptions, true},
		{"unspecified", "http://0.0.0.0:8080/v1", APIBaseURLOptions, false},
		{"public ip", "https://8.8.8.8/x.png", ImageURLOptions, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, tt.opts)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsafeURL))
			}
		})
	}
}
