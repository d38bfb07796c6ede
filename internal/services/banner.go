package services

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"time"
	"unicode"
)

// MaxBannerLen bounds how much of a banner is read and kept.
const MaxBannerLen = 256

// GrabBanner reads at most one line, up to MaxBannerLen bytes, from conn.
// The read is bounded by deadline alone; no other timer is started. Partial
// data received before the deadline is still returned. An empty string with a
// nil error means the service sent nothing.
func GrabBanner(conn net.Conn, deadline time.Time) (string, error) {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}

	r := bufio.NewReaderSize(io.LimitReader(conn, MaxBannerLen), MaxBannerLen)
	line, err := r.ReadBytes('\n')
	banner := cleanBanner(line)

	switch {
	case err == nil, errors.Is(err, io.EOF):
		return banner, nil
	case isTimeout(err):
		return banner, nil
	case banner != "":
		return banner, nil
	default:
		return "", err
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// cleanBanner trims line endings and replaces control bytes so the banner is
// safe to place in any report format.
func cleanBanner(raw []byte) string {
	raw = bytes.TrimRight(raw, "\r\n")
	s := strings.ToValidUTF8(string(raw), "?")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return '.'
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
