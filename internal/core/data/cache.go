package data

type slot struct {
	raw   string
	value any
}

// Cache remembers the last parsed value per leaf key of one component
// instance. Each key holds at most one slot; a slot is only reused when the
// exact same raw string is rebuilt.
type Cache struct {
	slots map[string]slot
}

func NewCache() *Cache {
	return &Cache{slots: make(map[string]slot)}
}

func (c *Cache) lookup(key, raw string) (any, bool) {
	s, ok := c.slots[key]
	if !ok || s.raw != raw {
		return nil, false
	}
	return s.value, true
}

func (c *Cache) store(key, raw string, value any) {
	c.slots[key] = slot{raw: raw, value: value}
}

// retain drops every slot whose key is not in active.
func (c *Cache) retain(active map[string]struct{}) {
	for key := range c.slots {
		if _, ok := active[key]; !ok {
			delete(c.slots, key)
		}
	}
}

func (c *Cache) Len() int { return len(c.slots) }

// Raw returns the raw string cached for key.
func (c *Cache) Raw(key string) (string, bool) {
	s, ok := c.slots[key]
	return s.raw, ok
}

func (c *Cache) Reset() {
	clear(c.slots)
}
