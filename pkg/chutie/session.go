package chutie

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/root4loot/chutie/pkg/viewport"
	"github.com/tidwall/gjson"
)

// Session is the record of one invocation: its inputs and every capture made.
type Session struct {
	Date      Timestamp   `json:"date"`
	URLs      []string    `json:"urls"`
	Viewports ViewportSet `json:"viewports"`
	Pages     PageSet     `json:"pages"`
}

// Record describes a single screenshot.
type Record struct {
	URL      string        `json:"url"`
	Date     Timestamp     `json:"date"`
	Filename string        `json:"filename"`
	Path     string        `json:"path"`
	FullPage bool          `json:"fullPage"`
	Viewport viewport.Spec `json:"viewport"`
	Page     PageInfo      `json:"page"`
}

// PageInfo is the state of the page at the time of the capture.
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// NewSession creates a session for the given inputs. Viewports sharing a
// PathKey collapse into one entry that keeps the position of the first.
func NewSession(date time.Time, urls []string, specs []viewport.Spec) *Session {
	s := &Session{
		Date: Timestamp{date},
		URLs: append([]string{}, urls...),
	}
	for _, spec := range specs {
		s.Viewports.Set(spec)
	}
	return s
}

// ViewportSet maps PathKey to viewport.Spec, preserving insertion order.
type ViewportSet struct {
	keys  []string
	specs map[string]viewport.Spec
}

// Set inserts or replaces spec under its PathKey.
func (vs *ViewportSet) Set(spec viewport.Spec) {
	if vs.specs == nil {
		vs.specs = make(map[string]viewport.Spec)
	}
	if _, ok := vs.specs[spec.PathKey]; !ok {
		vs.keys = append(vs.keys, spec.PathKey)
	}
	vs.specs[spec.PathKey] = spec
}

// Get returns the spec stored under key.
func (vs ViewportSet) Get(key string) (viewport.Spec, bool) {
	spec, ok := vs.specs[key]
	return spec, ok
}

func (vs ViewportSet) Len() int { return len(vs.keys) }

// Keys returns the PathKeys in insertion order.
func (vs ViewportSet) Keys() []string {
	return append([]string{}, vs.keys...)
}

// Specs returns the viewports in insertion order.
func (vs ViewportSet) Specs() []viewport.Spec {
	specs := make([]viewport.Spec, 0, len(vs.keys))
	for _, k := range vs.keys {
		specs = append(specs, vs.specs[k])
	}
	return specs
}

func (vs ViewportSet) MarshalJSON() ([]byte, error) {
	return marshalOrdered(vs.keys, func(k string) any { return vs.specs[k] })
}

func (vs *ViewportSet) UnmarshalJSON(data []byte) error {
	*vs = ViewportSet{}
	return unmarshalOrdered(data, "viewports", func(key string, raw []byte) error {
		var spec viewport.Spec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return err
		}
		if spec.PathKey == "" {
			spec.PathKey = key
		}
		vs.keys = append(vs.keys, key)
		if vs.specs == nil {
			vs.specs = make(map[string]viewport.Spec)
		}
		vs.specs[key] = spec
		return nil
	})
}

// PageSet maps URL to its capture records, preserving insertion order of
// URLs and of the records under each URL.
type PageSet struct {
	urls    []string
	records map[string][]Record
}

// PageEntry is one URL with its records, as handed to templates.
type PageEntry struct {
	URL     string
	Records []Record
}

// Append adds rec to the sequence of url.
func (ps *PageSet) Append(url string, rec Record) {
	if ps.records == nil {
		ps.records = make(map[string][]Record)
	}
	if _, ok := ps.records[url]; !ok {
		ps.urls = append(ps.urls, url)
	}
	ps.records[url] = append(ps.records[url], rec)
}

// Records returns the records captured for url.
func (ps PageSet) Records(url string) []Record {
	return ps.records[url]
}

func (ps PageSet) Len() int { return len(ps.urls) }

// URLs returns the captured URLs in insertion order.
func (ps PageSet) URLs() []string {
	return append([]string{}, ps.urls...)
}

// Entries returns the pages in insertion order.
func (ps PageSet) Entries() []PageEntry {
	entries := make([]PageEntry, 0, len(ps.urls))
	for _, u := range ps.urls {
		entries = append(entries, PageEntry{URL: u, Records: ps.records[u]})
	}
	return entries
}

func (ps PageSet) MarshalJSON() ([]byte, error) {
	return marshalOrdered(ps.urls, func(k string) any { return ps.records[k] })
}

func (ps *PageSet) UnmarshalJSON(data []byte) error {
	*ps = PageSet{}
	return unmarshalOrdered(data, "pages", func(key string, raw []byte) error {
		var recs []Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			return err
		}
		if ps.records == nil {
			ps.records = make(map[string][]Record)
		}
		if _, ok := ps.records[key]; !ok {
			ps.urls = append(ps.urls, key)
		}
		ps.records[key] = append(ps.records[key], recs...)
		return nil
	})
}

// marshalOrdered writes a JSON object whose keys follow the order of keys.
func marshalOrdered(keys []string, value func(string) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(value(k))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// unmarshalOrdered walks the members of a JSON object in document order.
func unmarshalOrdered(data []byte, field string, fn func(key string, raw []byte) error) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("chutie: %s: invalid JSON", field)
	}
	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		return nil
	}
	if !res.IsObject() {
		return fmt.Errorf("chutie: %s: expected a JSON object", field)
	}

	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		if ferr := fn(key.String(), []byte(value.Raw)); ferr != nil {
			err = fmt.Errorf("chutie: %s[%q]: %w", field, key.String(), ferr)
			return false
		}
		return true
	})
	return err
}
