// Package codec centralizes the encoding of persisted metadata such as set
// manifests.
//
// Manifests record the name of the codec that wrote them, so a manifest can
// always be decoded even after Default changes.
package codec

// Codec encodes and decodes manifests. Implementations must be safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used for newly written manifests.
var Default Codec = GoJSON{}

// ByName returns the built-in codec recorded under name in a manifest.
func ByName(name string) (Codec, bool) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}
