package resource

// Context is the immutable set of resolved values available to
// one evaluation run. It is safe for concurrent reads.
type Context struct {
	values map[Key]Value
	keys   []Key
}

// NewContext builds a Context from resolved values. Later
// values for a duplicate key replace earlier ones; key order
// follows first appearance.
func NewContext(values ...Value) *Context {
	c := &Context{
		values: make(map[Key]Value, len(values)),
		keys:   make([]Key, 0, len(values)),
	}
	for _, v := range values {
		if _, exists := c.values[v.Key]; !exists {
			c.keys = append(c.keys, v.Key)
		}
		c.values[v.Key] = v
	}
	return c
}

// Lookup returns the value resolved for key.
func (c *Context) Lookup(key Key) (Value, bool) {
	if c == nil {
		return Value{}, false
	}
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the resolved keys in resolution order.
func (c *Context) Keys() []Key {
	if c == nil {
		return nil
	}
	out := make([]Key, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of resolved keys.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}
