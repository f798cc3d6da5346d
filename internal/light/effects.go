package light

import "fmt"

// DefaultEffects is the effect list of the Tasmota WS2812 scheme table,
// in the order the firmware numbers them.
var DefaultEffects = []string{
	"Single Color",
	"Wakeup Light",
	"Cycle RGB",
	"Cycle RBG",
	"Clock",
	"Incadescent Light",
	"RGB Pattern",
	"Christmas Pattern",
	"Hannukah Pattern",
	"Kwanzaa Pattern",
	"Rainbow Pattern",
	"Fire Pattern",
}

// EffectCatalog maps effect names to the zero-based indices the device uses.
// It is fixed at construction.
type EffectCatalog struct {
	names []string
	index map[string]int
}

// NewEffectCatalog builds a catalog from an ordered name list.
// For duplicate names the first position wins, so Index and Name stay consistent.
func NewEffectCatalog(names []string) *EffectCatalog {
	c := &EffectCatalog{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range c.names {
		if _, dup := c.index[n]; !dup {
			c.index[n] = i
		}
	}
	return c
}

// Len returns the number of effects.
func (c *EffectCatalog) Len() int { return len(c.names) }

// Names returns a copy of the ordered effect names.
func (c *EffectCatalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Index returns the device index of name.
func (c *EffectCatalog) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Name returns the effect at index i, or ErrEffectOutOfRange.
func (c *EffectCatalog) Name(i int) (string, error) {
	if i < 0 || i >= len(c.names) {
		return "", fmt.Errorf("%w: index %d, catalog has %d effects", ErrEffectOutOfRange, i, len(c.names))
	}
	return c.names[i], nil
}
