package engine

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/gorilla/schema"

	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/serialization"
)

var formEncoder = schema.NewEncoder()

func init() {
	formEncoder.SetAliasTag("json")
}

type mapEntry struct {
	name  string
	value any
}

// mapEntries iterates a key/value shaped value. Pairs keep their order; Go
// maps and structs are visited in key order.
func mapEntries(argument string, v any) ([]mapEntry, error) {
	v, ok := serialization.Deref(v)
	if !ok {
		return nil, nil
	}

	switch val := v.(type) {
	case Pairs:
		return pairEntries(val), nil
	case []Pair:
		return pairEntries(val), nil
	case url.Values:
		return sortedEntries(val), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
		v = rv.Interface()
	}
	switch rv.Kind() {
	case reflect.Map:
		entries := make([]mapEntry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := serialization.FormatValue(iter.Key().Interface(), "")
			if !ok {
				continue
			}
			entries = append(entries, mapEntry{name: key, value: iter.Value().Interface()})
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
		return entries, nil
	case reflect.Slice:
		if !models.IsPairSlice(rv.Type()) {
			break
		}
		entries := make([]mapEntry, rv.Len())
		for i := range entries {
			el := rv.Index(i)
			entries[i] = mapEntry{name: el.FieldByName("Name").String(), value: el.FieldByName("Value").String()}
		}
		return entries, nil
	case reflect.Struct:
		dst := make(map[string][]string)
		if err := formEncoder.Encode(v, dst); err != nil {
			return nil, &ArgumentError{Argument: argument, Reason: err.Error()}
		}
		return sortedEntries(dst), nil
	}
	return nil, &ArgumentError{
		Argument: argument,
		Reason:   fmt.Sprintf("%T is not iterable as key/value pairs", v),
	}
}

func pairEntries(pairs []Pair) []mapEntry {
	entries := make([]mapEntry, len(pairs))
	for i, p := range pairs {
		entries[i] = mapEntry{name: p.Name, value: p.Value}
	}
	return entries
}

func sortedEntries(m map[string][]string) []mapEntry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]mapEntry, len(keys))
	for i, k := range keys {
		entries[i] = mapEntry{name: k, value: m[k]}
	}
	return entries
}

// formPairs flattens a form body. Collection values repeat the field once per
// non-null element; a null value becomes an empty field.
func formPairs(argument string, v any) (Pairs, error) {
	entries, err := mapEntries(argument, v)
	if err != nil {
		return nil, err
	}
	var pairs Pairs
	for _, entry := range entries {
		val, ok := serialization.Deref(entry.value)
		if !ok {
			pairs = append(pairs, Pair{Name: entry.name})
			continue
		}
		if serialization.IsCollection(val) {
			for _, el := range serialization.Elements(val) {
				if s, ok := serialization.FormatValue(el, ""); ok {
					pairs = append(pairs, Pair{Name: entry.name, Value: s})
				}
			}
			continue
		}
		s, _ := serialization.FormatValue(val, "")
		pairs = append(pairs, Pair{Name: entry.name, Value: s})
	}
	return pairs, nil
}

func encodePairs(pairs Pairs) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
