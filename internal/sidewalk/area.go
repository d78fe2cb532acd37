package sidewalk

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// AreaByNetwork keeps networks in insertion order when encoded.
type AreaByNetwork struct {
	names []string
	areas map[string]Area
}

func (a *AreaByNetwork) Set(network string, squareMiles any) {
	if a.areas == nil {
		a.areas = make(map[string]Area)
	}
	if _, ok := a.areas[network]; !ok {
		a.names = append(a.names, network)
	}
	a.areas[network] = Area{SquareMiles: squareMiles}
}

func (a *AreaByNetwork) Has(network string) bool {
	_, ok := a.areas[network]
	return ok
}

func (a *AreaByNetwork) Get(network string) (Area, bool) {
	v, ok := a.areas[network]
	return v, ok
}

func (a *AreaByNetwork) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range a.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.areas[n])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
