package expand

import "context"

// StructuredCompleter issues a structured chat completion and decodes it into out.
type StructuredCompleter interface {
	CompleteJSON(ctx context.Context, component, system, user, schemaName string, out any) error
}
