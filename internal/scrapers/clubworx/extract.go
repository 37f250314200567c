package clubworx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"clubworx-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var authenticityTokenRegex = regexp.MustCompile(`name="authenticity_token" value="([^"]*)"`)

func extractAuthenticityToken(page []byte) (string, error) {
	groups := authenticityTokenRegex.FindSubmatch(page)
	if len(groups) < 2 {
		return "", ErrAuthTokenNotFound
	}
	return string(groups[1]), nil
}

// extractGymID also reports whether the id was a JSON number so it can be
// exported with the same kind.
func extractGymID(page []byte) (ID, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", false, fmt.Errorf("%w: parse html: %w", ErrGymIdNotFound, err)
	}

	script := doc.Find("script#gym-data")
	if len(script.Nodes) == 0 {
		return "", false, ErrGymIdNotFound
	}

	var gymData struct {
		ID json.RawMessage `json:"id"`
	}
	err = json.Unmarshal([]byte(htmlutil.GetText(script.Nodes[0])), &gymData)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrGymIdNotFound, err)
	}

	var id ID
	if len(gymData.ID) > 0 {
		err = json.Unmarshal(gymData.ID, &id)
		if err != nil {
			return "", false, fmt.Errorf("%w: %w", ErrGymIdNotFound, err)
		}
	}
	if id == "" {
		return "", false, ErrGymIdNotFound
	}
	return id, isNumberLiteral(gymData.ID), nil
}

// cookieJar is the ordered list of raw Set-Cookie values collected during
// login, entries are only ever appended.
type cookieJar []string

func (j *cookieJar) add(setCookies []string) {
	for _, c := range setCookies {
		if strings.TrimSpace(c) == "" {
			continue
		}
		*j = append(*j, c)
	}
}

// cookiePair trims a raw Set-Cookie value down to `name=value`.
func cookiePair(raw string) string {
	pair, _, _ := strings.Cut(raw, ";")
	return strings.TrimSpace(pair)
}

// cookieHeader renders a Cookie request header out of raw Set-Cookie values.
// When a name is set more than once, the latest value wins but keeps the
// position of the first occurrence.
func cookieHeader(cookies []string) string {
	var names []string
	values := map[string]string{}
	for _, raw := range cookies {
		pair := cookiePair(raw)
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		if _, seen := values[name]; !seen {
			names = append(names, name)
		}
		values[name] = pair
	}

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = values[name]
	}
	return strings.Join(pairs, "; ")
}
