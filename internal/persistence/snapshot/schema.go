package snapshot

import "github.com/invopop/jsonschema"

// BuildSchema reflects the V1 snapshot document into a JSON schema, for
// validation and editor tooling. cmd/schema writes it to disk.
func BuildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(StateV1))
	schema.Title = "Packrat State Snapshot"
	schema.Description = "Validates V1 state snapshot documents (JSON form)."
	return schema
}
