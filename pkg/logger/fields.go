package logger

// Unified log field name constants.
// Keeps field naming consistent across the project for log querying.
const (
	// FieldPageID page record id field
	FieldPageID = "pageId"

	// FieldHolonID holon id field
	FieldHolonID = "holonId"

	// FieldBackend storage backend name field
	FieldBackend = "backend"

	// FieldBatchSize sync batch size field
	FieldBatchSize = "batchSize"

	// FieldSubscribers subscriber count field
	FieldSubscribers = "subscribers"
)
