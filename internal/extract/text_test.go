package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf and tabs", "Total:\t\t19,00 EUR\r\nMwSt\r3,03", "Total: 19,00 EUR\nMwSt\n3,03"},
		{"blank runs", "a\n\n\n\n b  ", "a\n\nb"},
		{"rules dropped", "Header\n-----\nBody", "Header\n\nBody"},
		{"control chars", "INV\x00-01 x", "INV-01 x"},
		{"keeps O and 0", "Nr 01", "Nr 01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}
