package bundle

import (
	"context"
	"fmt"

	"claimgate/pkg/cel"
	"claimgate/pkg/models"
)

// Outcome is the business-level reading of a transported response. Business
// success is decided here, never from the HTTP status: a 200 can still carry
// a fatal error on its header or an error payload.
type Outcome struct {
	Success      bool
	ResponseCode models.ResponseCode
	Parsed       *Parsed
	Errors       []models.ErrorRecord
}

// Validator enforces the structural invariants of a response envelope and
// extracts business-level error codes.
type Validator struct {
	classifier *cel.Classifier
}

func NewValidator(classifier *cel.Classifier) *Validator {
	return &Validator{classifier: classifier}
}

// ExpectedPayload maps an event kind to the response payload type that
// signals business success.
func ExpectedPayload(kind models.EventKind) string {
	switch kind {
	case models.EventEligibilityRequest:
		return models.ResourceEligibilityResponse
	case models.EventPriorAuthRequest, models.EventClaimRequest, models.EventBatchRequest:
		return models.ResourceClaimResponse
	case models.EventCancelRequest, models.EventPollRequest, models.EventStatusCheck:
		return models.ResourceTask
	case models.EventCommunication:
		return models.ResourceCommunication
	default:
		return ""
	}
}

// Evaluate classifies a successfully transported envelope as a business
// success or failure for the given request kind.
func (v *Validator) Evaluate(env *models.Envelope, kind models.EventKind) *Outcome {
	parsed, err := Parse(env)
	if err != nil {
		return &Outcome{
			Success: false,
			Errors: []models.ErrorRecord{{
				Source:   models.ErrorSourceStructure,
				Severity: "fatal",
				Code:     "invalid-envelope",
				Message:  err.Error(),
			}},
		}
	}

	out := &Outcome{
		Parsed:       parsed,
		ResponseCode: parsed.Header.ResponseCode,
	}

	if code := parsed.Header.ResponseCode; code == models.ResponseTransientError || code == models.ResponseFatalError {
		out.Errors = append(out.Errors, models.ErrorRecord{
			Source:   models.ErrorSourceHeader,
			Severity: "error",
			Code:     string(code),
			Message:  fmt.Sprintf("exchange reported %s on response header", code),
		})
	}

	for _, task := range parsed.Tasks {
		if task.Status != models.TaskFailed && task.Status != models.TaskRejected {
			continue
		}
		for _, output := range task.Outputs {
			if output.Type != "error" {
				continue
			}
			out.Errors = append(out.Errors, models.ErrorRecord{
				Source:   models.ErrorSourceTaskOutput,
				Severity: "error",
				Code:     output.Code,
				Message:  output.Message,
			})
		}
	}

	expected := ExpectedPayload(kind)
	hasExpected := expected != "" && parsed.HasResource(expected)

	// A warning-level error payload may legitimately ride along with a
	// valid result; it only forces failure when the result is absent.
	for _, outcome := range parsed.OperationOutcomes {
		for _, issue := range outcome.Issues {
			out.Errors = append(out.Errors, models.ErrorRecord{
				Source:     models.ErrorSourceOperationOutcome,
				Severity:   issue.Severity,
				Code:       issue.Code,
				Message:    issue.Diagnostics,
				Expression: issue.Expression,
			})
		}
	}

	headerFailed := parsed.Header.ResponseCode == models.ResponseTransientError ||
		parsed.Header.ResponseCode == models.ResponseFatalError
	taskFailed := false
	for _, r := range out.Errors {
		if r.Source == models.ErrorSourceTaskOutput {
			taskFailed = true
			break
		}
	}
	outcomeFailed := len(parsed.OperationOutcomes) > 0 && !hasExpected

	if headerFailed || taskFailed || outcomeFailed {
		out.Success = false
		return out
	}

	if !hasExpected {
		out.Success = false
		out.Errors = append(out.Errors, models.ErrorRecord{
			Source:   models.ErrorSourceStructure,
			Severity: "fatal",
			Code:     "missing-payload",
			Message:  fmt.Sprintf("response carries neither a %s nor an error payload", expected),
		})
		return out
	}

	out.Success = true
	return out
}

// ClassifyClaim reads a claim adjudication into an engine category using the
// configured disposition rules.
func (v *Validator) ClassifyClaim(ctx context.Context, kind models.EventKind, cr models.ClaimResponse) (cel.Category, error) {
	var approved, denied float64
	if cr.ApprovedAmount != nil {
		approved = *cr.ApprovedAmount
	}
	if cr.DeniedAmount != nil {
		denied = *cr.DeniedAmount
	}
	return v.classifier.Classify(ctx, cel.Result{
		Kind:           string(kind),
		Outcome:        cr.Outcome,
		Disposition:    cr.Disposition,
		ApprovedAmount: approved,
		DeniedAmount:   denied,
	})
}

// ClassifyEligibility reads an eligibility result into an engine category.
func (v *Validator) ClassifyEligibility(ctx context.Context, er models.EligibilityResponse) (cel.Category, error) {
	return v.classifier.Classify(ctx, cel.Result{
		Kind:        string(models.EventEligibilityRequest),
		Outcome:     er.Outcome,
		Disposition: er.Disposition,
	})
}
