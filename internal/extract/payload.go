package extract

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"restockwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Payload is a raw upstream response, the JSON and HTML views of it are parsed
// lazily and at most once so strategies can share them.
type Payload struct {
	raw []byte

	jsonDone bool
	json     any
	jsonOk   bool

	docDone bool
	doc     *goquery.Document

	scriptsDone bool
	scripts     []any
}

func NewPayload(raw []byte) *Payload {
	return &Payload{raw: raw}
}

func (p *Payload) Raw() []byte {
	return p.raw
}

func decodeJSON(r io.Reader) (any, bool) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

// JSON returns the payload parsed as a JSON document, ok is false if the payload
// is not JSON.
func (p *Payload) JSON() (any, bool) {
	if p.jsonDone {
		return p.json, p.jsonOk
	}
	p.jsonDone = true

	trimmed := bytes.TrimSpace(p.raw)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	p.json, p.jsonOk = decodeJSON(bytes.NewReader(trimmed))
	return p.json, p.jsonOk
}

// Document returns the payload parsed as HTML, it is nil for JSON payloads.
func (p *Payload) Document() *goquery.Document {
	if p.docDone {
		return p.doc
	}
	p.docDone = true

	if _, isJson := p.JSON(); isJson {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.raw))
	if err != nil {
		return nil
	}
	p.doc = doc
	return doc
}

var stateAssignmentRegex = regexp.MustCompile(`(?:window\.)?__[A-Z][A-Z0-9_]*__\s*=\s*`)

// ScriptData returns every JSON blob embedded in the script tags of an HTML payload:
// framework hydration payloads (`script#__NEXT_DATA__`, `script[type=application/json]`)
// and `window.__STATE__ = {...}` style assignments.
func (p *Payload) ScriptData() []any {
	if p.scriptsDone {
		return p.scripts
	}
	p.scriptsDone = true

	doc := p.Document()
	if doc == nil {
		return nil
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(htmlutil.GetText(s.Nodes[0]))
		if text == "" {
			return
		}

		scriptType := strings.ToLower(s.AttrOr("type", ""))
		if s.AttrOr("id", "") == "__NEXT_DATA__" || scriptType == "application/json" {
			if value, ok := decodeJSON(strings.NewReader(text)); ok {
				p.scripts = append(p.scripts, value)
			}
			return
		}
		if scriptType != "" && scriptType != "text/javascript" && scriptType != "module" {
			return
		}

		for _, loc := range stateAssignmentRegex.FindAllStringIndex(text, -1) {
			rest := strings.TrimSpace(text[loc[1]:])
			if !strings.HasPrefix(rest, "{") {
				continue
			}
			// the decoder stops after the first value so trailing javascript is ignored.
			if value, ok := decodeJSON(strings.NewReader(rest)); ok {
				p.scripts = append(p.scripts, value)
			}
		}
	})

	return p.scripts
}

// Roots are the JSON documents strategies search: the payload itself when it is
// JSON, otherwise the embedded script data.
func (p *Payload) Roots() []any {
	if root, ok := p.JSON(); ok {
		return []any{root}
	}
	return p.ScriptData()
}
