package engine

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/serialization"
)

// composeURI resolves the base, joins the base path and call path, fills
// placeholders and appends the query string.
func (e *Engine) composeURI(d *models.RequestDescriptor) (*url.URL, error) {
	values, err := e.pathValues(d)
	if err != nil {
		return nil, err
	}
	basePath, err := substitute(d.BasePath, values)
	if err != nil {
		return nil, &URIError{URI: d.BasePath, Err: err}
	}
	path, err := substitute(d.Path, values)
	if err != nil {
		return nil, &URIError{URI: d.Path, Err: err}
	}

	target := path
	if !isAbsolute(path) {
		base := d.BaseAddress
		if base == "" && e.transport != nil {
			if u := e.transport.BaseURL(); u != nil {
				base = u.String()
			}
		}
		if basePath != "" {
			if isAbsolute(basePath) {
				base = basePath
			} else {
				base = joinPath(base, basePath)
			}
		}
		target = joinPath(base, path)
		if !isAbsolute(base) {
			return nil, &URIError{URI: target, Err: ErrNoBaseAddress}
		}
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, &URIError{URI: target, Err: err}
	}
	query, err := e.composeQuery(d, u.RawQuery)
	if err != nil {
		return nil, err
	}
	u.RawQuery = query
	return u, nil
}

// pathValues serializes path-bound values. Parameters override properties
// bound to the same key.
func (e *Engine) pathValues(d *models.RequestDescriptor) (map[string]string, error) {
	values := make(map[string]string, len(d.PathProperties)+len(d.PathParameters))
	for _, group := range [][]models.PathEntry{d.PathProperties, d.PathParameters} {
		for _, p := range group {
			text, err := e.pathText(d, p)
			if err != nil {
				return nil, err
			}
			if p.AllowReserved {
				values[p.Name] = escapeReserved(text)
			} else {
				values[p.Name] = escapeData(text)
			}
		}
	}
	return values, nil
}

func (e *Engine) pathText(d *models.RequestDescriptor, p models.PathEntry) (string, error) {
	switch p.Method {
	case models.ToString:
		v, ok := serialization.Deref(p.Value)
		if !ok {
			return "", nil
		}
		if serialization.IsCollection(v) {
			var parts []string
			for _, el := range serialization.Elements(v) {
				if s, ok := serialization.FormatValue(el, p.Format); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ","), nil
		}
		s, _ := serialization.FormatValue(v, p.Format)
		return s, nil
	case models.Serialized:
		if _, ok := serialization.Deref(p.Value); !ok {
			return "", nil
		}
		return e.path.SerializePath(p.Name, p.Value, SerializationContext{Operation: d.Operation, Format: p.Format})
	default:
		return "", fmt.Errorf("%w %s for path value %q", ErrUnknownSerializationMethod, p.Method, p.Name)
	}
}

// substitute replaces every {name} in template with its escaped value. Keys
// without a value substitute as empty.
func substitute(template string, values map[string]string) (string, error) {
	if !strings.ContainsAny(template, "{}") {
		return template, nil
	}
	if _, err := models.Placeholders(template); err != nil {
		return "", err
	}
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}') + open
		b.WriteString(rest[:open])
		b.WriteString(values[rest[open+1:end]])
		rest = rest[end+1:]
	}
}

// joinPath appends rel to base with exactly one slash between them, keeping
// a trailing slash on rel. Query strings of both parts are kept, base first.
func joinPath(base, rel string) string {
	basePath, baseQuery, _ := strings.Cut(base, "?")
	relPath, relQuery, _ := strings.Cut(rel, "?")

	var joined string
	switch {
	case relPath == "":
		joined = basePath
	case basePath == "":
		joined = relPath
	default:
		joined = strings.TrimRight(basePath, "/") + "/" + strings.TrimLeft(relPath, "/")
	}

	query := baseQuery
	if relQuery != "" {
		if query != "" {
			query += "&"
		}
		query += relQuery
	}
	if query != "" {
		joined += "?" + query
	}
	return joined
}

func isAbsolute(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}

// escapeData percent-encodes every byte outside the unreserved set, so a
// value can never act as a separator wherever it lands in the template.
func escapeData(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; isUnreserved(c) {
			b.WriteByte(c)
		} else {
			writeEscape(&b, c)
		}
	}
	return b.String()
}

// escapeReserved percent-encodes everything except unreserved and reserved
// characters (RFC 3986) and existing escapes. A '%' not followed by two hex
// digits is encoded.
func escapeReserved(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				b.WriteByte(c)
			} else {
				writeEscape(&b, c)
			}
		case isUnreserved(c) || strings.IndexByte(":/?#[]@!$&'()*+,;=", c) >= 0:
			b.WriteByte(c)
		default:
			writeEscape(&b, c)
		}
	}
	return b.String()
}

func writeEscape(b *strings.Builder, c byte) {
	const hex = "0123456789ABCDEF"
	b.WriteByte('%')
	b.WriteByte(hex[c>>4])
	b.WriteByte(hex[c&15])
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isUnreserved(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// composeQuery appends, after any existing query string: property values,
// parameter values, query maps and finally raw fragments verbatim.
func (e *Engine) composeQuery(d *models.RequestDescriptor, existing string) (string, error) {
	var b strings.Builder
	b.WriteString(existing)
	add := func(pairs []Pair) {
		for _, p := range pairs {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(p.Name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(p.Value))
		}
	}

	for _, group := range [][]models.QueryEntry{d.QueryProperties, d.QueryParameters} {
		for _, q := range group {
			pairs, err := e.queryPairs(d, q.Name, q.Value, q.Method, q.Format)
			if err != nil {
				return "", err
			}
			add(pairs)
		}
	}

	for _, m := range d.QueryMaps {
		entries, err := mapEntries(m.Name, m.Value)
		if err != nil {
			return "", err
		}
		for _, entry := range entries {
			pairs, err := e.queryPairs(d, entry.name, entry.value, m.Method, "")
			if err != nil {
				return "", err
			}
			add(pairs)
		}
	}

	for _, raw := range d.RawQueries {
		raw = strings.TrimLeft(raw, "?&")
		if raw == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(raw)
	}
	return b.String(), nil
}

// queryPairs encodes one query value. Under string conversion a null value
// is dropped and collections expand to one pair per non-null element; the
// structured serializer receives the value as is, null included.
func (e *Engine) queryPairs(d *models.RequestDescriptor, name string, value any, method models.SerializationMethod, format string) ([]Pair, error) {
	switch method {
	case models.ToString:
		v, ok := serialization.Deref(value)
		if !ok {
			return nil, nil
		}
		if serialization.IsCollection(v) {
			var pairs []Pair
			for _, el := range serialization.Elements(v) {
				if s, ok := serialization.FormatValue(el, format); ok {
					pairs = append(pairs, Pair{Name: name, Value: s})
				}
			}
			return pairs, nil
		}
		s, _ := serialization.FormatValue(v, format)
		return []Pair{{Name: name, Value: s}}, nil
	case models.Serialized:
		return e.query.SerializeQuery(name, value, SerializationContext{Operation: d.Operation, Format: format})
	default:
		return nil, fmt.Errorf("%w %s for query value %q", ErrUnknownSerializationMethod, method, name)
	}
}
