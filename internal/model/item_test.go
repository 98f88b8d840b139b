package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderEmail(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"bare address", "alice@example.com", "alice@example.com"},
		{"display name form", "Alice Smith <Alice@Example.com>", "alice@example.com"},
		{"quoted display name", `"Smith, Alice" <alice@example.com>`, "alice@example.com"},
		{"uppercased", "ALICE@EXAMPLE.COM", "alice@example.com"},
		{"surrounding whitespace", "  alice@example.com  ", "alice@example.com"},
		{"empty", "", ""},
		{"angle brackets only", "<bob@test.io>", "bob@test.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ContentItem{From: tt.from}
			assert.Equal(t, tt.want, item.SenderEmail())
		})
	}
}

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"simple", "alice@example.com", "example.com"},
		{"display name form", "Alice <alice@Corp.Example.COM>", "corp.example.com"},
		{"no at sign", "not-an-address", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ContentItem{From: tt.from}
			assert.Equal(t, tt.want, item.SenderDomain())
		})
	}
}
