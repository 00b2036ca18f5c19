package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"html", KindHTML},
		{"HTML", KindHTML},
		{" htm ", KindHTML},
		{"text/html", KindHTML},
		{"markdown", KindMarkdown},
		{"md", KindMarkdown},
		{"", KindMarkdown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseKind(tt.in), tt.in)
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindHTML.Valid())
	assert.True(t, KindMarkdown.Valid())
	assert.False(t, Kind("pdf").Valid())
}
