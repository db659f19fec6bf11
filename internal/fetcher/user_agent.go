package fetcher

import (
	"math/rand/v2"
	"strings"
)

type UserAgentType string

const (
	UserAgentAuto    UserAgentType = "auto"
	UserAgentChrome  UserAgentType = "chrome"
	UserAgentFirefox UserAgentType = "firefox"
	UserAgentEdge    UserAgentType = "edge"
)

var userAgents = map[UserAgentType][]string{
	UserAgentChrome: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	},
	UserAgentFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	},
	UserAgentEdge: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	},
}

// browserAgents maps focus application names onto the agent family that
// renders the same pages.
var browserAgents = map[string]UserAgentType{
	"msedge":  UserAgentEdge,
	"brave":   UserAgentChrome,
	"opera":   UserAgentChrome,
	"vivaldi": UserAgentChrome,
}

type UserAgentSelector struct {
	all []string
}

func NewUserAgentSelector() *UserAgentSelector {
	var all []string
	for _, t := range []UserAgentType{UserAgentChrome, UserAgentFirefox, UserAgentEdge} {
		all = append(all, userAgents[t]...)
	}
	return &UserAgentSelector{all: all}
}

// GetUserAgent returns a user agent for uaType. Empty and "auto" pick from
// every family, a known family or browser app name picks from that family,
// and anything else is returned unchanged as a literal user agent.
func (uas *UserAgentSelector) GetUserAgent(uaType string) string {
	key := strings.ToLower(strings.TrimSpace(uaType))
	if key == "" || UserAgentType(key) == UserAgentAuto {
		return uas.all[rand.IntN(len(uas.all))]
	}

	t := UserAgentType(key)
	if mapped, ok := browserAgents[key]; ok {
		t = mapped
	}
	if agents, ok := userAgents[t]; ok {
		return agents[rand.IntN(len(agents))]
	}
	return strings.TrimSpace(uaType)
}
