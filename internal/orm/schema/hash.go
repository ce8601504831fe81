package schema

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Hash returns a content digest of the definition's observable structure.
// It is only used to compare definitions across processes.
func (d *Definition) Hash() string {
	return fmt.Sprintf("%016x", xxh3.HashString(d.canonical()))
}

// canonical encodes everything that affects the generated table. Fields are
// separated by 0x1f and records by 0x1e so names cannot run together.
func (d *Definition) canonical() string {
	var b strings.Builder

	writeRecord(&b, "def", d.Group, d.Name, d.Table)

	for _, c := range d.Columns {
		t := c.Type
		if t == nil {
			t = &TypeSpec{}
		}
		ref := ""
		if c.References != nil {
			ref = fmt.Sprintf("%s.%s/%s", c.References.Table, c.References.Column, c.References.OnDelete)
		}
		writeRecord(&b, "col",
			c.Name,
			t.BaseType.String(),
			fmt.Sprint(t.Nullable),
			fmt.Sprintf("%#v", t.Default),
			strings.Join(t.EnumValues, ","),
			intParam(t.Length),
			intParam(t.Precision),
			intParam(t.Scale),
			fmt.Sprint(c.Primary, c.Auto, c.Unique, c.Index),
			ref,
		)
	}

	for _, r := range d.Relationships {
		writeRecord(&b, "rel", r.Name, r.Target, r.Through)
	}

	return b.String()
}

func writeRecord(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(f)
	}
	b.WriteByte(0x1e)
}

func intParam(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}
