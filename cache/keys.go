package cache

import (
	"net/url"
	"strconv"
	"strings"
)

// Key identifies one cache entry. Two keys are equal iff they were built
// from the same resource name and the same params in the same order,
// absent params included.
type Key string

// Param is one filter value of a key. A param is either present with a
// value or explicitly absent.
type Param struct {
	Name    string
	Value   string
	Present bool
}

func Value(name, v string) Param {
	return Param{Name: name, Value: v, Present: true}
}

func IntValue(name string, v int) Param {
	return Value(name, strconv.Itoa(v))
}

func Absent(name string) Param {
	return Param{Name: name}
}

// Optional is IntValue when v is non-nil and Absent otherwise.
func Optional(name string, v *int) Param {
	if v == nil {
		return Absent(name)
	}
	return IntValue(name, *v)
}

// BuildKey derives the key of resource under params, keeping the declared
// param order. Absent params are encoded as "name!" and present ones as
// "name=value", so "all platforms" and "platform X" never collide.
func BuildKey(resource string, params ...Param) Key {
	var b strings.Builder
	b.WriteString(url.QueryEscape(resource))
	for _, p := range params {
		b.WriteByte('|')
		b.WriteString(url.QueryEscape(p.Name))
		if !p.Present {
			b.WriteByte('!')
			continue
		}
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return Key(b.String())
}

// Resource returns the resource name the key was built for.
func (k Key) Resource() string {
	head, _, _ := strings.Cut(string(k), "|")
	r, err := url.QueryUnescape(head)
	if err != nil {
		return head
	}
	return r
}

func (k Key) String() string { return string(k) }
