package schema

// Flags returns the names of the metadata flags set on v, in a fixed order.
func (v *Var) Flags() []string {
	var flags []string

	for _, f := range []struct {
		set  bool
		name string
	}{
		{v.Constant, "constant"},
		{v.MayBeDefined, "may_be_defined"},
		{v.CheckedAsDefined, "checked_as_defined"},
		{v.CheckedAsUndefined, "checked_as_undefined"},
		{v.UsedWithDefault, "used_with_default"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}

	return flags
}

// ToTree renders v as nested maps and slices suitable for JSON or YAML.
func ToTree(v *Var) map[string]any {
	node := map[string]any{"type": v.Kind.String()}

	if v.Label != "" {
		node["label"] = v.Label
	}

	if len(v.Lines) > 0 {
		node["lines"] = append([]int(nil), v.Lines...)
	}

	if flags := v.Flags(); len(flags) > 0 {
		node["flags"] = flags
	}

	switch v.Kind {
	case KindList:
		node["items"] = ToTree(v.Elem)
	case KindTuple:
		items := make([]any, len(v.Items))
		for i, it := range v.Items {
			items[i] = ToTree(it)
		}

		node["items"] = items
	case KindDictionary:
		props := make(map[string]any, len(v.Fields))
		for k, f := range v.Fields {
			props[k] = ToTree(f)
		}

		node["properties"] = props
	}

	return node
}

// ToJSONSchema renders v as a draft-04 JSON schema document.
func ToJSONSchema(v *Var) map[string]any {
	doc := jsonSchema(v)
	doc["$schema"] = "http://json-schema.org/draft-04/schema#"

	return doc
}

func jsonSchema(v *Var) map[string]any {
	node := map[string]any{}

	if v.Label != "" {
		node["title"] = v.Label
	}

	switch v.Kind {
	case KindScalar:
		node["type"] = []string{"boolean", "null", "number", "string"}
	case KindString:
		node["type"] = "string"
	case KindNumber:
		node["type"] = "number"
	case KindBoolean:
		node["type"] = "boolean"
	case KindList:
		node["type"] = "array"
		node["items"] = jsonSchema(v.Elem)
	case KindTuple:
		node["type"] = "array"

		items := make([]any, len(v.Items))
		for i, it := range v.Items {
			items[i] = jsonSchema(it)
		}

		node["items"] = items
	case KindDictionary:
		node["type"] = "object"

		props := make(map[string]any, len(v.Fields))
		required := []string{}

		for _, k := range v.FieldNames() {
			f := v.Fields[k]
			props[k] = jsonSchema(f)

			if !f.MayBeDefined && !f.UsedWithDefault {
				required = append(required, k)
			}
		}

		node["properties"] = props
		node["required"] = required
	}

	return node
}
