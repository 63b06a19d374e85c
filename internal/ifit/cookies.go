package ifit

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// ParseCookiesFile reads a Mozilla/Netscape format cookies.txt file, the
// format browser cookie exporters produce. Expired cookies are dropped.
func ParseCookiesFile(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookies file: %w", err)
	}
	defer f.Close()

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()

		// curl and some exporters mark HttpOnly cookies with a prefix that
		// otherwise looks like a comment.
		if strings.HasPrefix(text, httpOnlyPrefix) {
			text = strings.TrimPrefix(text, httpOnlyPrefix)
		} else if strings.HasPrefix(text, "#") || strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("cookies file line %d: expected 7 tab-separated fields, got %d", line, len(fields))
		}

		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cookies file line %d: bad expiry %q: %w", line, fields[4], err)
		}
		if expires > 0 && time.Unix(expires, 0).Before(time.Now()) {
			continue
		}

		cookie := &http.Cookie{
			Domain: strings.TrimPrefix(fields[0], "."),
			Path:   fields[2],
			Secure: strings.EqualFold(fields[3], "TRUE"),
			Name:   fields[5],
			Value:  fields[6],
		}
		// expiry 0 means a session cookie, leave Expires unset
		if expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}
		cookies = append(cookies, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	return cookies, nil
}
