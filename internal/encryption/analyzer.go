// Package encryption summarises the authentication modes seen in a survey.
package encryption

import (
	"sort"
	"strings"

	"github.com/sells-group/wardrive-cli/internal/model"
)

// Category is a coarse encryption family.
type Category string

const (
	CategoryOpen    Category = "open"
	CategoryWEP     Category = "wep"
	CategoryWPA     Category = "wpa"
	CategoryUnknown Category = "unknown"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryWPA, CategoryWEP, CategoryOpen, CategoryUnknown}

var (
	wpaMarkers  = []string{"WPA", "RSN", "SAE"}
	openMarkers = []string{"OPEN", "NONE"}
	// neutralTokens carry no security information. A label made only of
	// these (e.g. "[ESS]" or "[WPS][ESS]") describes an open network.
	neutralTokens = map[string]bool{"ESS": true, "IBSS": true, "WPS": true}
)

// Classify maps a raw auth label to a Category.
func Classify(label string) Category {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return CategoryUnknown
	}

	for _, m := range wpaMarkers {
		if strings.Contains(s, m) {
			return CategoryWPA
		}
	}
	if strings.Contains(s, "WEP") {
		return CategoryWEP
	}
	for _, m := range openMarkers {
		if strings.Contains(s, m) {
			return CategoryOpen
		}
	}
	if onlyNeutralTokens(s) {
		return CategoryOpen
	}
	return CategoryUnknown
}

// onlyNeutralTokens reports whether s is a sequence of bracketed tokens that
// are all in neutralTokens.
func onlyNeutralTokens(s string) bool {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return false
	}
	tokens := strings.Split(strings.Trim(s, "[]"), "][")
	for _, tok := range tokens {
		if !neutralTokens[tok] {
			return false
		}
	}
	return true
}

// Stat is the share of one category or label.
type Stat struct {
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// LabelStat is the share of one raw auth label.
type LabelStat struct {
	Label    string   `json:"label" yaml:"label"`
	Category Category `json:"category" yaml:"category"`
	Stat     `yaml:",inline"`
}

// Report is the encryption distribution over the records considered.
// Category counts always sum to Total.
type Report struct {
	Total      int               `json:"total" yaml:"total"`
	Unique     bool              `json:"unique_networks" yaml:"unique_networks"`
	Categories map[Category]Stat `json:"categories" yaml:"categories"`
	Labels     []LabelStat       `json:"labels" yaml:"labels"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithUniqueNetworks counts each MAC+SSID pair once.
func WithUniqueNetworks() Option {
	return func(a *Analyzer) {
		a.seen = make(map[string]struct{})
	}
}

// Analyzer accumulates auth-mode counts over valid records.
type Analyzer struct {
	total  int
	counts map[Category]int
	labels map[string]int
	// seen is non-nil only in unique-network mode.
	seen map[string]struct{}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		counts: make(map[Category]int, len(Categories)),
		labels: make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add counts rec. Malformed records are not considered.
func (a *Analyzer) Add(rec model.NetworkRecord) {
	if !rec.Valid() {
		return
	}
	if a.seen != nil {
		key := rec.MAC + " " + rec.SSID
		if _, dup := a.seen[key]; dup {
			return
		}
		a.seen[key] = struct{}{}
	}

	a.total++
	a.counts[Classify(rec.AuthMode)]++
	a.labels[rec.AuthMode]++
}

// Report returns the current distribution. Every category is present.
func (a *Analyzer) Report() Report {
	r := Report{
		Total:      a.total,
		Unique:     a.seen != nil,
		Categories: make(map[Category]Stat, len(Categories)),
	}
	for _, c := range Categories {
		r.Categories[c] = Stat{Count: a.counts[c], Percentage: percent(a.counts[c], a.total)}
	}

	for label, n := range a.labels {
		r.Labels = append(r.Labels, LabelStat{
			Label:    label,
			Category: Classify(label),
			Stat:     Stat{Count: n, Percentage: percent(n, a.total)},
		})
	}
	sort.Slice(r.Labels, func(i, j int) bool {
		if r.Labels[i].Count != r.Labels[j].Count {
			return r.Labels[i].Count > r.Labels[j].Count
		}
		return r.Labels[i].Label < r.Labels[j].Label
	})
	return r
}

// Analyze runs an Analyzer over records.
func Analyze(records []model.NetworkRecord, opts ...Option) Report {
	a := NewAnalyzer(opts...)
	for _, rec := range records {
		a.Add(rec)
	}
	return a.Report()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
