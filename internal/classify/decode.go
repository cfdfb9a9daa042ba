package classify

import (
	"bytes"
	"encoding/json"

	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
)

// Decode parses a JSON document describing a failure so it can be passed to Classify.
// Objects decode to map[string]any, which covers both transport failure shapes and
// canonical error bodies.
func Decode(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ferrors.ValidationError("failure document is empty").Build()
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "failure document is not valid JSON").
			UserAction().
			Build()
	}
	return v, nil
}
