package notify

import (
	"fmt"
	"strings"
)

// Address identifies a delivery destination as "platform:kind:target",
// for example "telegram:chat:12345".
type Address struct {
	Platform string
	Kind     string
	Target   string
}

func (a Address) String() string {
	return a.Platform + ":" + a.Kind + ":" + a.Target
}

// ParseAddress splits a recipient string into its three segments.
// All three must be non-empty.
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Address{}, fmt.Errorf("recipient %q: want platform:kind:target", s)
	}
	a := Address{
		Platform: strings.TrimSpace(parts[0]),
		Kind:     strings.TrimSpace(parts[1]),
		Target:   strings.TrimSpace(parts[2]),
	}
	if a.Platform == "" || a.Kind == "" || a.Target == "" {
		return Address{}, fmt.Errorf("recipient %q: empty segment", s)
	}
	return a, nil
}
