package validation

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/skybi/gatekeeper/internal/api/schema"
)

var (
	errQueryParameterMissing = func(name string) *schema.Error {
		return &schema.Error{
			Type:    "validation.query.parameter.missing",
			Message: fmt.Sprintf("The query parameter '%s' is required but was not present in the request.", name),
			Details: map[string]interface{}{
				"parameter": name,
			},
		}
	}
	errQueryParameterInvalidType = func(name, value, expectedType string) *schema.Error {
		return &schema.Error{
			Type:    "validation.query.parameter.invalidType",
			Message: fmt.Sprintf("The query parameter '%s' ('%s') could not be assigned to the required type (%s).", name, value, expectedType),
			Details: map[string]interface{}{
				"parameter":     name,
				"value":         value,
				"expected_type": expectedType,
			},
		}
	}
	errQueryParameterNumberOutOfRange = func(name string, value, min, max int64) *schema.Error {
		comparison := ""
		if value < min {
			comparison = fmt.Sprintf("%d [given] < %d [min]", value, min)
		} else if value > max {
			comparison = fmt.Sprintf("%d [given] > %d [max]", value, max)
		}

		return &schema.Error{
			Type:    "validation.query.parameter.number.outOfRange",
			Message: fmt.Sprintf("The query parameter '%s' is out of the required range (%s).", name, comparison),
			Details: map[string]interface{}{
				"parameter": name,
				"value":     value,
				"min":       min,
				"max":       max,
			},
		}
	}
	errQueryParameterNotAllowed = func(name, value string, allowed []string) *schema.Error {
		return &schema.Error{
			Type:    "validation.query.parameter.notAllowed",
			Message: fmt.Sprintf("The query parameter '%s' ('%s') is not one of the allowed values (%s).", name, value, strings.Join(allowed, ", ")),
			Details: map[string]interface{}{
				"parameter": name,
				"value":     value,
				"allowed":   allowed,
			},
		}
	}
)

// QueryNumber extracts and validates an integer value out of the query parameters of the given request
func QueryNumber(request *http.Request, key string, required bool, def, min, max int64) (int64, *schema.Error) {
	// Extract the raw string value
	value := request.URL.Query().Get(key)
	if value == "" {
		if required {
			return 0, errQueryParameterMissing(key)
		}
		return def, nil
	}

	// Try to parse the value
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errQueryParameterInvalidType(key, value, "number")
	}

	// Check if the parsed value is in the required range
	if parsed < min || parsed > max {
		return 0, errQueryParameterNumberOutOfRange(key, parsed, min, max)
	}

	return parsed, nil
}

// QueryString extracts a trimmed string value out of the query parameters of the given request.
// An absent or blank value yields nil.
func QueryString(request *http.Request, key string) *string {
	value := strings.TrimSpace(request.URL.Query().Get(key))
	if value == "" {
		return nil
	}
	return &value
}

// QueryEnum extracts a string value out of the query parameters of the given request and verifies that it is one of
// the allowed values.
// An absent value yields nil.
func QueryEnum(request *http.Request, key string, allowed ...string) (*string, *schema.Error) {
	value := QueryString(request, key)
	if value == nil {
		return nil, nil
	}
	for _, candidate := range allowed {
		if *value == candidate {
			return value, nil
		}
	}
	return nil, errQueryParameterNotAllowed(key, *value, allowed)
}
