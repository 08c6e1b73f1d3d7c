package registry

// SchemaRegistry manages JSON schemas for the documents the SDK reads from
// outside: the remote version manifest and the workshop side-car file.
type SchemaRegistry interface {
	// Register adds a schema for a document kind (e.g. "manifest").
	// model can be a struct (to generate schema) or a JSON schema string/map.
	Register(kind string, model interface{}) error

	// GetSchema returns the JSON schema for a document kind.
	GetSchema(kind string) (string, bool)

	// Validate checks a raw JSON document against the schema of kind.
	Validate(kind string, document []byte) error

	// List returns all registered document kinds.
	List() []string
}
