package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mediagen/internal/domain"
)

// Normalization errors. Both mark a broken payload, never a pending task:
// ErrMalformedResult is unparseable JSON, ErrMissingResultField is a payload
// that parsed but lacks a field the encoding promises.
var (
	ErrMalformedResult    = errors.New("provider: malformed result payload")
	ErrMissingResultField = errors.New("provider: missing result field")
)

// OutcomeState is the canonical status of a queried task.
type OutcomeState int

const (
	OutcomePending OutcomeState = iota
	OutcomeSuccess
	OutcomeFailed
)

// Outcome is the normalized view of a provider status payload. URLs keep the
// provider's array order; consumers assign meaning to positions.
type Outcome struct {
	State          OutcomeState
	URLs           []string
	FailureCode    string
	FailureMessage string
}

// Normalizer converts one provider model's raw status payload into an
// Outcome. The two wire encodings stay separate behind this interface; the
// poller never sees provider-specific shape.
type Normalizer interface {
	Normalize(raw json.RawMessage) (Outcome, error)
}

// NormalizerFor selects the normalizer matching a model's status encoding.
func NormalizerFor(ref domain.ModelRef) (Normalizer, error) {
	switch ref.Service {
	case domain.ServiceJobs:
		return stateStringNormalizer{}, nil
	case domain.ServiceGPTImage, domain.ServiceFlux:
		return integerFlagNormalizer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedModel, ref)
	}
}

// stateStringNormalizer handles the jobs API encoding: a state field of
// waiting|success|fail, with the success result serialized as a JSON string
// in resultJson. A success payload without a parseable resultUrls array is a
// contract violation, not a pending task.
type stateStringNormalizer struct{}

type stateStringPayload struct {
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailCode   string `json:"failCode"`
	FailMsg    string `json:"failMsg"`
}

func (stateStringNormalizer) Normalize(raw json.RawMessage) (Outcome, error) {
	var payload stateStringPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	switch payload.State {
	case "waiting":
		return Outcome{State: OutcomePending}, nil
	case "fail":
		return Outcome{
			State:          OutcomeFailed,
			FailureCode:    payload.FailCode,
			FailureMessage: payload.FailMsg,
		}, nil
	case "success":
		if strings.TrimSpace(payload.ResultJSON) == "" {
			return Outcome{}, fmt.Errorf("%w: resultJson", ErrMissingResultField)
		}
		var result struct {
			ResultURLs *[]string `json:"resultUrls"`
		}
		if err := json.Unmarshal([]byte(payload.ResultJSON), &result); err != nil {
			return Outcome{}, fmt.Errorf("%w: parse resultJson: %v", ErrMalformedResult, err)
		}
		if result.ResultURLs == nil {
			return Outcome{}, fmt.Errorf("%w: resultUrls", ErrMissingResultField)
		}
		return Outcome{State: OutcomeSuccess, URLs: dropEmpty(*result.ResultURLs)}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: unexpected state %q", ErrMalformedResult, payload.State)
	}
}

// integerFlagNormalizer handles the record-info encoding: successFlag 0 is
// pending, 1 success, 2 and 3 failed. A success payload may legitimately
// carry no response object while results are still being delivered, so a
// missing or malformed resultUrls normalizes to an empty success list.
type integerFlagNormalizer struct{}

type integerFlagPayload struct {
	SuccessFlag  int    `json:"successFlag"`
	ErrorCode    *int   `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Response     struct {
		ResultURLs json.RawMessage `json:"resultUrls"`
	} `json:"response"`
}

func (integerFlagNormalizer) Normalize(raw json.RawMessage) (Outcome, error) {
	var payload integerFlagPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	switch payload.SuccessFlag {
	case 0:
		return Outcome{State: OutcomePending}, nil
	case 1:
		return Outcome{State: OutcomeSuccess, URLs: lenientURLs(payload.Response.ResultURLs)}, nil
	case 2, 3:
		code := ""
		if payload.ErrorCode != nil {
			code = fmt.Sprintf("%d", *payload.ErrorCode)
		}
		return Outcome{
			State:          OutcomeFailed,
			FailureCode:    code,
			FailureMessage: payload.ErrorMessage,
		}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: unexpected successFlag %d", ErrMalformedResult, payload.SuccessFlag)
	}
}

// lenientURLs decodes an optional resultUrls array, treating anything that is
// not a string array as no results.
func lenientURLs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var urls []*string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*u); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func dropEmpty(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
