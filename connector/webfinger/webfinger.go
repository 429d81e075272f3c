// Package webfinger resolves acct:user@host handles to actor ids (RFC 7033).
package webfinger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tkrehbiel/fedlace/connector/data"
)

const (
	selfRel        = "self"
	profilePageRel = "http://webfinger.net/rel/profile-page"
)

var acctRegex = regexp.MustCompile(`^(?:acct:)?@?([^@\s/]+)@([^@\s/]+)$`)

// Account is a parsed user@host handle.
type Account struct {
	User string
	Host string
}

// ParseAccount accepts "user@host", "@user@host" and "acct:user@host".
func ParseAccount(s string) (Account, error) {
	m := acctRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Account{}, fmt.Errorf("not a webfinger account: %q", s)
	}
	return Account{User: m[1], Host: strings.ToLower(m[2])}, nil
}

func (a Account) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// URI is the webfinger query for the account on its own host.
func (a Account) URI() string {
	u := url.URL{
		Scheme:   "https",
		Host:     a.Host,
		Path:     "/.well-known/webfinger",
		RawQuery: url.Values{"resource": []string{a.String()}}.Encode(),
	}
	return u.String()
}

// Resource is a parsed JRD document.
type Resource struct {
	Subject     string
	Aliases     []string
	Self        string // actor id, from the rel=self link
	ProfilePage string
}

// ParseResource reads a JRD. Among several self links the activity json one wins.
func ParseResource(n data.Node) (Resource, error) {
	r := Resource{Subject: n.String("subject")}
	if aliases, ok := n.Array("aliases"); ok {
		for _, a := range aliases {
			if s, ok := a.(string); ok {
				r.Aliases = append(r.Aliases, s)
			}
		}
	}
	links, _ := data.Refs(n, "links")
	for _, l := range links {
		if !l.IsObject() {
			continue
		}
		link := l.Object()
		href := link.String("href")
		switch link.String("rel") {
		case selfRel:
			if r.Self == "" || strings.Contains(link.String("type"), "activity+json") {
				r.Self = href
			}
		case profilePageRel:
			r.ProfilePage = href
		}
	}
	if r.Self == "" {
		return r, data.Malformed("no self link in webfinger resource", n)
	}
	return r, nil
}
