package model

import (
	"strconv"
	"sync"
)

// guarded wraps a snapshot map with the lock protecting it. The listen
// goroutine mutates the graph while any goroutine may read it, so every
// entity embeds one and routes reads through the locked helpers. The lock
// is never held across an Emit; subscribers may call accessors freely.
type guarded struct {
	dataMu sync.RWMutex
	data   map[string]any
}

func (g *guarded) getString(key string) string {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getString(g.data, key)
}

func (g *guarded) getStringOK(key string) (string, bool) {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getStringOK(g.data, key)
}

func (g *guarded) getBool(key string) bool {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getBool(g.data, key)
}

func (g *guarded) getBoolOK(key string) (bool, bool) {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getBoolOK(g.data, key)
}

func (g *guarded) getInt(key string) int {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getInt(g.data, key)
}

func (g *guarded) getIntOK(key string) (int, bool) {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getIntOK(g.data, key)
}

func (g *guarded) getInt64(key string) int64 {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getInt64(g.data, key)
}

func (g *guarded) getMap(key string) map[string]any {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getMap(g.data, key)
}

func (g *guarded) getIntSlice(key string) []int {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return getIntSlice(g.data, key)
}

func (g *guarded) get(key string) any {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	return g.data[key]
}

func (g *guarded) set(key string, v any) {
	g.dataMu.Lock()
	defer g.dataMu.Unlock()
	g.data[key] = v
}

func (g *guarded) unset(key string) {
	g.dataMu.Lock()
	defer g.dataMu.Unlock()
	delete(g.data, key)
}

// snapshot returns a shallow copy of the data map.
func (g *guarded) snapshot() map[string]any {
	g.dataMu.RLock()
	defer g.dataMu.RUnlock()
	out := make(map[string]any, len(g.data))
	for k, v := range g.data {
		out[k] = v
	}
	return out
}

// Snapshot accessor helpers. JSON numbers decode to float64, so the integer
// accessors convert. Missing or mistyped keys yield the zero value.

func getString(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func getStringOK(data map[string]any, key string) (string, bool) {
	s, ok := data[key].(string)
	return s, ok
}

func getBool(data map[string]any, key string) bool {
	b, _ := data[key].(bool)
	return b
}

func getBoolOK(data map[string]any, key string) (bool, bool) {
	b, ok := data[key].(bool)
	return b, ok
}

func getInt(data map[string]any, key string) int {
	n, _ := getIntOK(data, key)
	return n
}

func getIntOK(data map[string]any, key string) (int, bool) {
	switch v := data[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func getInt64(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func getFloatOK(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func getMap(data map[string]any, key string) map[string]any {
	m, _ := data[key].(map[string]any)
	return m
}

func getSlice(data map[string]any, key string) []any {
	s, _ := data[key].([]any)
	return s
}

func getIntSlice(data map[string]any, key string) []int {
	raw := getSlice(data, key)
	if raw == nil {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}

// formatPropertyPart renders a property or property key for use in a value
// ID. Integral numbers print without a decimal point so IDs derived from
// decoded JSON match IDs the server prints.
func formatPropertyPart(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	case int:
		return strconv.Itoa(p)
	case int64:
		return strconv.FormatInt(p, 10)
	default:
		return ""
	}
}
