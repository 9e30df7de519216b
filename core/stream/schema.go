package stream

import "github.com/invopop/jsonschema"

// EnvelopeSchema reflects the wire envelope into a JSON schema. Backends use
// it to validate the records they emit; the contract test pins the field
// names so wire-breaking renames do not slip through silently.
func EnvelopeSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&Envelope{})
}
