package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name   string
		port   uint16
		banner string
		want   string
	}{
		{"ssh banner", 2222, "SSH-2.0-OpenSSH_9.6p1 Ubuntu-3ubuntu13", "SSH"},
		{"http status line", 8000, "HTTP/1.1 400 Bad Request", "HTTP"},
		{"ftp greeting", 21, "220 (vsFTPd 3.0.5)", "FTP"},
		{"smtp greeting", 2525, "220 mail.example.com ESMTP Postfix", "SMTP"},
		{"pop3 greeting", 110, "+OK Dovecot ready.", "POP3"},
		{"imap greeting", 143, "* OK [CAPABILITY IMAP4rev1] Dovecot ready.", "IMAP"},
		{"vnc handshake", 5901, "RFB 003.008", "VNC"},
		{"redis error", 6380, "-NOAUTH Authentication required.", "Redis"},
		{"banner wins over port", 22, "HTTP/1.0 200 OK", "HTTP"},
		{"no banner falls back to port", 22, "", "SSH"},
		{"unmatched banner falls back to port", 3306, "garbage", "MySQL"},
		{"unknown port without banner", 40000, "", Unknown},
		{"unknown port with unmatched banner", 40000, "hello", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.port, tt.banner))
		})
	}
}

func TestIdentify_FirstMatchWins(t *testing.T) {
	c := NewClassifier()

	// Matches both the FTP and SMTP patterns; FTP is listed first.
	svc, ok := c.Identify("220 FileZilla mail gateway")
	assert.True(t, ok)
	assert.Equal(t, "FTP", svc)

	_, ok = c.Identify("")
	assert.False(t, ok)
}

func TestOptions(t *testing.T) {
	c := NewClassifier(
		WithSignature("Custom", regexp.MustCompile(`^CUSTOM/`)),
		WithPort(4000, "Internal"),
		WithPort(22, "SSH-Alt"),
	)

	assert.Equal(t, "Custom", c.Classify(1, "CUSTOM/1.0"))
	assert.Equal(t, "Internal", c.Classify(4000, ""))
	assert.Equal(t, "SSH-Alt", c.Classify(22, ""))

	// overrides do not leak into other classifiers
	assert.Equal(t, "SSH", NewClassifier().Classify(22, ""))
}

func TestWellKnownPortsTable(t *testing.T) {
	c := NewClassifier()
	for _, p := range []uint16{21, 22, 23, 25, 53, 80, 443, 3306, 3389, 5432, 8080} {
		svc, ok := c.ByPort(p)
		assert.True(t, ok, "port %d", p)
		assert.NotEmpty(t, svc)
	}
	assert.GreaterOrEqual(t, len(wellKnownPorts), 40)
}
