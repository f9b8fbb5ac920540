package gedcom

import (
	"encoding/json"
	"sort"
	"strings"
)

// AdditionalData guarda els tags no reconeguts d'una entitat, agrupats per tag
// i en ordre de fitxer dins de cada tag.
type AdditionalData map[string][]AdditionalValue

// AdditionalValue és un subarbre opac: valor i fills.
type AdditionalValue struct {
	Value    string         `json:"value,omitempty"`
	Children AdditionalData `json:"children,omitempty"`
}

// Add afegeix el subarbre del registre sota el seu tag.
func (a *AdditionalData) Add(r *Record) {
	if r == nil {
		return
	}
	if *a == nil {
		*a = AdditionalData{}
	}
	(*a)[r.Tag] = append((*a)[r.Tag], additionalFromRecord(r))
}

func additionalFromRecord(r *Record) AdditionalValue {
	v := AdditionalValue{Value: r.Value}
	for _, c := range r.Children {
		v.Children.Add(c)
	}
	return v
}

// Keys retorna els tags ordenats, per tenir una sortida determinista.
func (a AdditionalData) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JSON serialitza les dades; cadena buida si no n'hi ha.
func (a AdditionalData) JSON() (string, error) {
	if len(a) == 0 {
		return "", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseAdditionalData llegeix el JSON guardat a la columna additional_data.
func ParseAdditionalData(raw string) (AdditionalData, error) {
	if raw == "" {
		return nil, nil
	}
	var a AdditionalData
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a AdditionalData) clone() AdditionalData {
	if len(a) == 0 {
		return AdditionalData{}
	}
	out := make(AdditionalData, len(a))
	for k, v := range a {
		out[k] = append([]AdditionalValue(nil), v...)
	}
	return out
}

// take treu i retorna el primer valor del tag.
func (a AdditionalData) take(tag string) (AdditionalValue, bool) {
	list := a[tag]
	if len(list) == 0 {
		return AdditionalValue{}, false
	}
	a.remove(tag, 0)
	return list[0], true
}

// takeValue treu i retorna el primer valor del tag amb aquest contingut.
func (a AdditionalData) takeValue(tag, value string) (AdditionalValue, bool) {
	for i, v := range a[tag] {
		if strings.TrimSpace(v.Value) == value {
			a.remove(tag, i)
			return v, true
		}
	}
	return AdditionalValue{}, false
}

func (a AdditionalData) remove(tag string, i int) {
	list := a[tag]
	rest := append(append([]AdditionalValue(nil), list[:i]...), list[i+1:]...)
	if len(rest) == 0 {
		delete(a, tag)
		return
	}
	a[tag] = rest
}
