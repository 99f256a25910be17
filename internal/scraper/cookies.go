package scraper

import (
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// netscapeCookie is one line of a Netscape HTTP cookie file, the format
// browser cookie-export extensions produce.
type netscapeCookie struct {
	Domain            string
	IncludeSubdomains bool
	Path              string
	Secure            bool
	Expires           int64
	Name              string
	Value             string
	HTTPOnly          bool
}

// findCookieFile locates the newest .txt file under root whose name
// contains every token (case-insensitive). Returns "" when none exists.
func findCookieFile(root string, tokens []string) (string, error) {
	var (
		best     string
		bestTime time.Time
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".txt") {
			return nil
		}
		for _, token := range tokens {
			if !strings.Contains(name, strings.ToLower(token)) {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = path, info.ModTime()
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return best, nil
}

// parseNetscapeCookieFile reads all cookie lines from path. Comment
// lines are skipped except the #HttpOnly_ prefix, which marks a live
// cookie.
func parseNetscapeCookieFile(path string) ([]netscapeCookie, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cookies []netscapeCookie
	for _, rawLine := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		httpOnly := false
		if rest, ok := strings.CutPrefix(line, "#HttpOnly_"); ok {
			httpOnly = true
			line = rest
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "\t", 7)
		if len(parts) != 7 {
			return nil, fmt.Errorf("invalid Netscape cookie line: %s", line)
		}

		expires, _ := strconv.ParseInt(parts[4], 10, 64)
		cookies = append(cookies, netscapeCookie{
			Domain:            parts[0],
			IncludeSubdomains: strings.EqualFold(parts[1], "true"),
			Path:              parts[2],
			Secure:            strings.EqualFold(parts[3], "true"),
			Expires:           expires,
			Name:              parts[5],
			Value:             parts[6],
			HTTPOnly:          httpOnly,
		})
	}

	return cookies, nil
}

// loadNetscapeCookies finds the newest matching cookie file under root
// and loads it into jar. It returns the file used, or "" when no file
// matched.
func loadNetscapeCookies(jar http.CookieJar, root string, tokens []string) (string, error) {
	path, err := findCookieFile(root, tokens)
	if err != nil || path == "" {
		return "", err
	}

	cookies, err := parseNetscapeCookieFile(path)
	if err != nil {
		return "", err
	}

	byHost := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		if host == "" {
			return "", fmt.Errorf("invalid cookie domain: %q", c.Domain)
		}

		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.IncludeSubdomains {
			cookie.Domain = c.Domain
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(c.Expires, 0)
		}
		byHost[host] = append(byHost[host], cookie)
	}

	for host, hostCookies := range byHost {
		u, err := url.Parse("https://" + host + "/")
		if err != nil {
			return "", fmt.Errorf("invalid cookie domain: %q", host)
		}
		jar.SetCookies(u, hostCookies)
	}

	return path, nil
}
