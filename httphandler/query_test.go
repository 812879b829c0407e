package httphandler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupQuery(t *testing.T) {
	tests := []struct {
		raw   string
		key   string
		value string
		found bool
	}{
		{"path=/a.txt", "path", "/a.txt", true},
		{"path=/a;b.txt&to=/c", "to", "/c", true},
		{"path=/a;b.txt", "path", "/a;b.txt", true},
		{"path=/100%.txt", "path", "/100%.txt", true},
		{"path=%2Fa%20b+c", "path", "/a b c", true},
		{"path=%4", "path", "%4", true},
		{"path=%g1", "path", "%g1", true},
		{"path=a=b", "path", "a=b", true},
		{"path", "path", "", true},
		{"path=", "path", "", true},
		{"path=/first&path=/second", "path", "/first", true},
		{"p%61th=/x", "path", "/x", true},
		{"&&to=/x", "path", "", false},
		{"", "path", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			value, found := lookupQuery(tt.raw, tt.key)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.value, value)
		})
	}
}
