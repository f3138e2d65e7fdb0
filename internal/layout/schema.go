package layout

import "github.com/invopop/jsonschema"

// Schema returns the JSON schema of the layout file format.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return r.Reflect(&cardWire{})
}
