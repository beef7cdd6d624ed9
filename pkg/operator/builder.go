package operator

// PropertyOption configures a property created through the builder helpers.
type PropertyOption func(*Property)

// WithLabel sets the display label.
func WithLabel(label string) PropertyOption {
	return func(p *Property) {
		p.Label = label
	}
}

// WithDescription sets the help text.
func WithDescription(description string) PropertyOption {
	return func(p *Property) {
		p.Description = description
	}
}

// WithDefault sets the default value.
func WithDefault(value any) PropertyOption {
	return func(p *Property) {
		p.Default = value
	}
}

// WithView attaches presentation hints.
func WithView(view View) PropertyOption {
	return func(p *Property) {
		v := view
		p.View = &v
	}
}

// Required marks the property as mandatory.
func Required() PropertyOption {
	return func(p *Property) {
		p.Required = true
	}
}

// NewObject returns an empty object type ready for Define calls.
func NewObject() *Object {
	return &Object{}
}

// NewProperty wraps a type into a property.
func NewProperty(t Type, options ...PropertyOption) *Property {
	prop := &Property{Type: t}
	for _, opt := range options {
		if opt != nil {
			opt(prop)
		}
	}
	return prop
}

// Define adds (or replaces) a named property and returns it.
func (o *Object) Define(name string, t Type, options ...PropertyOption) *Property {
	prop := NewProperty(t, options...)
	for idx, entry := range o.Properties {
		if entry.Name == name {
			o.Properties[idx].Property = prop
			return prop
		}
	}
	o.Properties = append(o.Properties, NamedProperty{Name: name, Property: prop})
	return prop
}

// Str defines a string property.
func (o *Object) Str(name string, options ...PropertyOption) *Property {
	return o.Define(name, &String{}, options...)
}

// Int defines an integer property.
func (o *Object) Int(name string, options ...PropertyOption) *Property {
	return o.Define(name, &Number{Int: true}, options...)
}

// Float defines a floating point property.
func (o *Object) Float(name string, options ...PropertyOption) *Property {
	return o.Define(name, &Number{Float: true}, options...)
}

// Bool defines a boolean property.
func (o *Object) Bool(name string, options ...PropertyOption) *Property {
	return o.Define(name, &Boolean{}, options...)
}

// Enum defines a choice property.
func (o *Object) Enum(name string, values []any, options ...PropertyOption) *Property {
	return o.Define(name, &Enum{Values: append([]any(nil), values...)}, options...)
}

// List defines a list property with the given element type.
func (o *Object) List(name string, element Type, options ...PropertyOption) *Property {
	return o.Define(name, &List{Element: element}, options...)
}

// Obj defines a nested object property and returns the nested object so
// callers can keep defining fields on it.
func (o *Object) Obj(name string, options ...PropertyOption) *Object {
	child := NewObject()
	o.Define(name, child, options...)
	return child
}
