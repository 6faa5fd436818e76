// Package blocklist decides whether a sighting names a privacy-sensitive
// network by MAC address, SSID or SSID pattern.
package blocklist

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wardrive-cli/internal/model"
)

// Kind identifies which list produced a hit.
type Kind string

const (
	KindMAC     Kind = "mac"
	KindSSID    Kind = "ssid"
	KindPattern Kind = "pattern"
)

// Hit describes the first blocklist entry that matched a record.
type Hit struct {
	Kind  Kind   `json:"kind"`
	Entry string `json:"entry"`
}

// Config is the on-disk filter configuration. Every list is optional.
type Config struct {
	BlockedMACs     []string `json:"blocked_macs" yaml:"blocked_macs"`
	BlockedSSIDs    []string `json:"blocked_ssids" yaml:"blocked_ssids"`
	BlockedPatterns []string `json:"blocked_patterns" yaml:"blocked_patterns"`
	// MatchPatternsOnMAC applies patterns to the MAC text as well as the
	// SSID. Unset means true.
	MatchPatternsOnMAC *bool `json:"match_patterns_on_mac,omitempty" yaml:"match_patterns_on_mac,omitempty"`
}

// Matcher is a compiled, immutable blocklist. A nil *Matcher matches nothing.
type Matcher struct {
	macs        map[string]struct{}
	ssids       map[string]struct{}
	patterns    []*regexp.Regexp
	patternsMAC bool
}

// Compile validates cfg and builds a Matcher. Any invalid MAC entry or
// pattern is an error: a partially loaded blocklist could leak data.
func Compile(cfg Config) (*Matcher, error) {
	m := &Matcher{
		macs:        make(map[string]struct{}, len(cfg.BlockedMACs)),
		ssids:       make(map[string]struct{}, len(cfg.BlockedSSIDs)),
		patterns:    make([]*regexp.Regexp, 0, len(cfg.BlockedPatterns)),
		patternsMAC: cfg.MatchPatternsOnMAC == nil || *cfg.MatchPatternsOnMAC,
	}

	for _, raw := range cfg.BlockedMACs {
		mac, err := model.NormalizeMAC(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "blocklist: invalid blocked mac %q", raw)
		}
		m.macs[mac] = struct{}{}
	}

	for _, ssid := range cfg.BlockedSSIDs {
		m.ssids[ssid] = struct{}{}
	}

	for _, p := range cfg.BlockedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "blocklist: invalid pattern %q", p)
		}
		m.patterns = append(m.patterns, re)
	}

	return m, nil
}

// Len returns the total number of entries across all lists.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.macs) + len(m.ssids) + len(m.patterns)
}

// Matches reports whether rec is blocklisted.
func (m *Matcher) Matches(rec model.NetworkRecord) bool {
	_, ok := m.Match(rec)
	return ok
}

// Match returns the first hit for rec. Exact MAC is checked first, then
// exact SSID, then patterns in declared order.
func (m *Matcher) Match(rec model.NetworkRecord) (Hit, bool) {
	if m == nil {
		return Hit{}, false
	}

	mac := strings.ToUpper(strings.TrimSpace(rec.MAC))
	if _, ok := m.macs[mac]; ok {
		return Hit{Kind: KindMAC, Entry: mac}, true
	}

	if _, ok := m.ssids[rec.SSID]; ok {
		return Hit{Kind: KindSSID, Entry: rec.SSID}, true
	}

	for _, re := range m.patterns {
		if re.MatchString(rec.SSID) || (m.patternsMAC && m.matchMAC(re, rec)) {
			return Hit{Kind: KindPattern, Entry: re.String()}, true
		}
	}
	return Hit{}, false
}

// matchMAC tries re against the MAC as written in the file and in canonical
// form, so patterns work whichever case and separator the export used.
func (m *Matcher) matchMAC(re *regexp.Regexp, rec model.NetworkRecord) bool {
	raw := rec.RawMAC()
	return re.MatchString(raw) || (raw != rec.MAC && re.MatchString(rec.MAC))
}
