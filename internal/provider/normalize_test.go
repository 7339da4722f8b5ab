package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"mediagen/internal/domain"
)

func TestNormalizerForSelectsEncoding(t *testing.T) {
	jobs, err := NormalizerFor(domain.ModelRef{Service: domain.ServiceJobs, Model: domain.ModelImagen})
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if _, ok := jobs.(stateStringNormalizer); !ok {
		t.Fatalf("jobs normalizer = %T", jobs)
	}
	flag, err := NormalizerFor(domain.ModelRef{Service: domain.ServiceFlux, Model: domain.ModelFluxKontextPro})
	if err != nil {
		t.Fatalf("flux: %v", err)
	}
	if _, ok := flag.(integerFlagNormalizer); !ok {
		t.Fatalf("flux normalizer = %T", flag)
	}
	if _, err := NormalizerFor(domain.ModelRef{Service: "nope"}); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("unknown service err = %v", err)
	}
}

func TestStateStringSuccessPreservesURLOrder(t *testing.T) {
	raw := json.RawMessage(`{"state":"success","resultJson":"{\"resultUrls\":[\"https://x/1.jpg\",\"https://x/2.jpg\"]}"}`)
	outcome, err := stateStringNormalizer{}.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if outcome.State != OutcomeSuccess {
		t.Fatalf("state = %d, want success", outcome.State)
	}
	want := []string{"https://x/1.jpg", "https://x/2.jpg"}
	if !reflect.DeepEqual(outcome.URLs, want) {
		t.Fatalf("urls = %v, want %v", outcome.URLs, want)
	}
}

func TestStateStringWaitingIsPending(t *testing.T) {
	outcome, err := stateStringNormalizer{}.Normalize(json.RawMessage(`{"state":"waiting"}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if outcome.State != OutcomePending {
		t.Fatalf("state = %d, want pending", outcome.State)
	}
}

func TestStateStringFailCarriesProviderCode(t *testing.T) {
	raw := json.RawMessage(`{"state":"fail","failCode":"501","failMsg":"content policy violation"}`)
	outcome, err := stateStringNormalizer{}.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if outcome.State != OutcomeFailed {
		t.Fatalf("state = %d, want failed", outcome.State)
	}
	if outcome.FailureCode != "501" || outcome.FailureMessage != "content policy violation" {
		t.Fatalf("failure = %q/%q", outcome.FailureCode, outcome.FailureMessage)
	}
}

func TestStateStringMalformedResultJSONIsErrorNotPending(t *testing.T) {
	raw := json.RawMessage(`{"state":"success","resultJson":"not json"}`)
	_, err := stateStringNormalizer{}.Normalize(raw)
	if !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("err = %v, want ErrMalformedResult", err)
	}
	if !strings.Contains(err.Error(), "invalid character") {
		t.Fatalf("err should include the parse failure reason: %v", err)
	}
}

func TestStateStringMissingResultURLsIsDistinctError(t *testing.T) {
	raw := json.RawMessage(`{"state":"success","resultJson":"{\"other\":1}"}`)
	_, err := stateStringNormalizer{}.Normalize(raw)
	if !errors.Is(err, ErrMissingResultField) {
		t.Fatalf("err = %v, want ErrMissingResultField", err)
	}
	if errors.Is(err, ErrMalformedResult) {
		t.Fatalf("missing field must stay distinct from malformed payload")
	}
}

func TestStateStringMissingResultJSONIsError(t *testing.T) {
	raw := json.RawMessage(`{"state":"success"}`)
	if _, err := (stateStringNormalizer{}).Normalize(raw); !errors.Is(err, ErrMissingResultField) {
		t.Fatalf("err = %v, want ErrMissingResultField", err)
	}
}

func TestStateStringUnexpectedStateIsError(t *testing.T) {
	if _, err := (stateStringNormalizer{}).Normalize(json.RawMessage(`{"state":"exploded"}`)); err == nil {
		t.Fatalf("expected error for unexpected state")
	}
}

func TestIntegerFlagPendingAndFailed(t *testing.T) {
	outcome, err := integerFlagNormalizer{}.Normalize(json.RawMessage(`{"successFlag":0}`))
	if err != nil || outcome.State != OutcomePending {
		t.Fatalf("pending: outcome = %+v, err = %v", outcome, err)
	}

	for _, flag := range []int{2, 3} {
		raw := json.RawMessage(fmt.Sprintf(`{"successFlag":%d,"errorCode":400,"errorMessage":"bad prompt"}`, flag))
		outcome, err := integerFlagNormalizer{}.Normalize(raw)
		if err != nil {
			t.Fatalf("flag %d: %v", flag, err)
		}
		if outcome.State != OutcomeFailed || outcome.FailureCode != "400" || outcome.FailureMessage != "bad prompt" {
			t.Fatalf("flag %d: outcome = %+v", flag, outcome)
		}
	}
}

func TestIntegerFlagSuccessWithoutResponseIsEmptySuccess(t *testing.T) {
	outcome, err := integerFlagNormalizer{}.Normalize(json.RawMessage(`{"successFlag":1}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if outcome.State != OutcomeSuccess {
		t.Fatalf("state = %d, want success", outcome.State)
	}
	if len(outcome.URLs) != 0 {
		t.Fatalf("urls = %v, want empty", outcome.URLs)
	}
}

func TestIntegerFlagSuccessFiltersNullEntries(t *testing.T) {
	raw := json.RawMessage(`{"successFlag":1,"response":{"resultUrls":["https://x/a.png",null,"","https://x/b.png"]}}`)
	outcome, err := integerFlagNormalizer{}.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []string{"https://x/a.png", "https://x/b.png"}
	if !reflect.DeepEqual(outcome.URLs, want) {
		t.Fatalf("urls = %v, want %v", outcome.URLs, want)
	}
}

func TestIntegerFlagNonArrayResultURLsIsEmptySuccess(t *testing.T) {
	raw := json.RawMessage(`{"successFlag":1,"response":{"resultUrls":"oops"}}`)
	outcome, err := integerFlagNormalizer{}.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if outcome.State != OutcomeSuccess || len(outcome.URLs) != 0 {
		t.Fatalf("outcome = %+v, want empty success", outcome)
	}
}

func TestIntegerFlagUnexpectedFlagIsError(t *testing.T) {
	if _, err := (integerFlagNormalizer{}).Normalize(json.RawMessage(`{"successFlag":7}`)); !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
}

func TestNormalizersAreIdempotent(t *testing.T) {
	cases := []struct {
		norm Normalizer
		raw  json.RawMessage
	}{
		{stateStringNormalizer{}, json.RawMessage(`{"state":"success","resultJson":"{\"resultUrls\":[\"https://x/1.jpg\"]}"}`)},
		{integerFlagNormalizer{}, json.RawMessage(`{"successFlag":1,"response":{"resultUrls":["https://x/1.png"]}}`)},
	}
	for i, tc := range cases {
		first, err1 := tc.norm.Normalize(tc.raw)
		second, err2 := tc.norm.Normalize(tc.raw)
		if err1 != nil || err2 != nil {
			t.Fatalf("case %d: errs = %v, %v", i, err1, err2)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("case %d: outcomes differ: %+v vs %+v", i, first, second)
		}
	}
}
