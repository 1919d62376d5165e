package account

import (
	"math"
	"net/http"

	"github.com/skybi/gatekeeper/internal/api/schema"
	"github.com/skybi/gatekeeper/internal/api/validation"
	"github.com/skybi/gatekeeper/internal/audit"
)

var outcomes = []string{
	string(audit.OutcomeGranted),
	string(audit.OutcomeMissingAuthorization),
	string(audit.OutcomeMalformedAuthorization),
	string(audit.OutcomeInvalidSession),
	string(audit.OutcomeForbidden),
	string(audit.OutcomeUnavailable),
}

// EndpointGetAudit handles the 'GET /v1/audit?outcome={string?}&user_id={string?}&offset={number?:0}&limit={number?:10}' endpoint
func (service *Service) EndpointGetAudit(writer http.ResponseWriter, request *http.Request) {
	var validationErrs []*schema.Error

	outcome, validationErr := validation.QueryEnum(request, "outcome", outcomes...)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	offset, validationErr := validation.QueryNumber(request, "offset", false, 0, 0, math.MaxInt64)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	limit, validationErr := validation.QueryNumber(request, "limit", false, 10, 1, 100)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	filter := &audit.Filter{
		UserID: validation.QueryString(request, "user_id"),
	}
	if outcome != nil {
		value := audit.Outcome(*outcome)
		filter.Outcome = &value
	}

	entries, n, err := service.Audit.Get(request.Context(), filter, uint64(offset), uint64(limit))
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	service.writer.WriteJSON(writer, schema.BuildPaginatedResponse(uint64(offset), uint64(limit), n, entries))
}
