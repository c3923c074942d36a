// Package validator expresses input checks as Rule values and collects the
// failures into ValidationErrors keyed by field name.
//
//	err := validator.Apply(
//		validator.Required("email", in.Email),
//		validator.ValidEmail("email", in.Email),
//		validator.LengthBetween("name", in.Name, 2, 30),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs.Has("email") {
//		// show errs.Get("email") next to the email input
//	}
//
// Lengths are counted in runes, not bytes.
package validator
