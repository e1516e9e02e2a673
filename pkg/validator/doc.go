// Package validator builds declarative validation from small Rule values.
//
// Each rule constructor returns a Rule holding a Check function and the
// ValidationError to report when the check fails. Apply evaluates a list of
// rules and aggregates failures, at most one per field, into ValidationErrors.
// ValidationErrors implements error and survives errors.Join, so callers can
// wrap it with a domain sentinel and still recover field details with
// ExtractValidationErrors:
//
//	err := validator.Apply(
//		validator.InList("plan_type", plan, plans),
//		validator.MinNum("limit_value", value, -1),
//		validator.MaxLenString("description", desc, 500),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve.Has("plan_type") {
//		// ...
//	}
//
// Errors carry a TranslationKey (for example "validation.in_list") and the
// values needed to render a localized message.
package validator
