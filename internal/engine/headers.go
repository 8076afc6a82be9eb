package engine

import (
	"net/http"
	"net/textproto"

	"github.com/moamenhredeen/restbind/internal/models"
)

// contentHeaderNames belong to the request content rather than the envelope.
var contentHeaderNames = map[string]bool{
	"Allow":               true,
	"Content-Disposition": true,
	"Content-Encoding":    true,
	"Content-Language":    true,
	"Content-Length":      true,
	"Content-Location":    true,
	"Content-Md5":         true,
	"Content-Range":       true,
	"Content-Type":        true,
	"Expires":             true,
	"Last-Modified":       true,
}

// headerLayers is the effective header set after layering, in order of first
// appearance. A name with no values was removed by a null entry.
type headerLayers struct {
	order  []string
	values map[string][]string
}

// layerHeaders merges layers given in increasing precedence. Within a layer
// repeated names accumulate values in declaration order; a name present in a
// higher layer replaces every value from lower ones, and null entries
// contribute no value. Repeated values stay separate header values and are
// left to the transport to fold.
func layerHeaders(layers ...[]models.HeaderEntry) headerLayers {
	h := headerLayers{values: make(map[string][]string)}
	for _, layer := range layers {
		current := make(map[string][]string)
		var order []string
		for _, entry := range layer {
			name := textproto.CanonicalMIMEHeaderKey(entry.Name)
			vals, seen := current[name]
			if !seen {
				order = append(order, name)
				vals = []string{}
			}
			if entry.Value != nil {
				vals = append(vals, *entry.Value)
			}
			current[name] = vals
		}
		for _, name := range order {
			if _, ok := h.values[name]; !ok {
				h.order = append(h.order, name)
			}
			h.values[name] = current[name]
		}
	}
	return h
}

// split separates envelope headers from content headers. Content headers
// with values synthesize an empty content when there is none; removed
// content headers are deleted from the content's own set.
func (h headerLayers) split(content *Content) (http.Header, *Content) {
	envelope := make(http.Header)
	for _, name := range h.order {
		vals := h.values[name]
		if !contentHeaderNames[name] {
			for _, v := range vals {
				envelope.Add(name, v)
			}
			continue
		}
		if len(vals) > 0 && content == nil {
			content = emptyContent()
		}
		if content == nil {
			continue
		}
		if len(vals) == 0 {
			content.Header.Del(name)
		} else {
			content.Header[name] = append([]string(nil), vals...)
		}
	}
	return envelope, content
}

func (h headerLayers) get(name string) []string {
	return h.values[textproto.CanonicalMIMEHeaderKey(name)]
}
