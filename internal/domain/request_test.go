package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeRequestSelectsVariantByServiceAndModel(t *testing.T) {
	cases := []struct {
		service string
		model   string
		input   string
		wantRef ModelRef
		check   func(t *testing.T, req GenerationRequest)
	}{
		{
			service: ServiceGPTImage,
			model:   ModelGPTImage,
			input:   `{"prompt":"a red fox","nVariants":2,"filesUrl":["https://cdn.example.com/ref.png"]}`,
			wantRef: ModelRef{Service: ServiceGPTImage, Model: ModelGPTImage},
			check: func(t *testing.T, req GenerationRequest) {
				r, ok := req.(GPTImageRequest)
				if !ok {
					t.Fatalf("req = %T", req)
				}
				if r.Prompt != "a red fox" || r.NVariants != 2 || len(r.FilesURL) != 1 {
					t.Fatalf("decoded = %+v", r)
				}
			},
		},
		{
			service: ServiceFlux,
			model:   ModelFluxKontextMax,
			input:   `{"prompt":"moody skyline","aspectRatio":"16:9"}`,
			wantRef: ModelRef{Service: ServiceFlux, Model: ModelFluxKontextMax},
			check: func(t *testing.T, req GenerationRequest) {
				r, ok := req.(FluxKontextRequest)
				if !ok {
					t.Fatalf("req = %T", req)
				}
				if r.Model != ModelFluxKontextMax {
					t.Fatalf("model not pinned from the route: %+v", r)
				}
			},
		},
		{
			service: ServiceJobs,
			model:   ModelKlingVideo,
			input:   `{"prompt":"dolly zoom","start_image_url":"https://x/s.png","end_image_url":"https://x/e.png"}`,
			wantRef: ModelRef{Service: ServiceJobs, Model: ModelKlingVideo},
			check: func(t *testing.T, req GenerationRequest) {
				r, ok := req.(KlingVideoRequest)
				if !ok {
					t.Fatalf("req = %T", req)
				}
				if r.StartImageURL == "" || r.EndImageURL == "" {
					t.Fatalf("frame pair lost: %+v", r)
				}
			},
		},
		{
			service: ServiceJobs,
			model:   ModelImagen,
			input:   `{"prompt":"watercolor lighthouse","num_images":4}`,
			wantRef: ModelRef{Service: ServiceJobs, Model: ModelImagen},
			check: func(t *testing.T, req GenerationRequest) {
				r, ok := req.(ImagenRequest)
				if !ok {
					t.Fatalf("req = %T", req)
				}
				if r.NumImages != 4 {
					t.Fatalf("decoded = %+v", r)
				}
			},
		},
	}

	for _, tc := range cases {
		req, err := DecodeRequest(tc.service, tc.model, json.RawMessage(tc.input))
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.service, tc.model, err)
		}
		if req.Ref() != tc.wantRef {
			t.Fatalf("%s/%s: ref = %v", tc.service, tc.model, req.Ref())
		}
		tc.check(t, req)
	}
}

func TestDecodeRequestRejectsUnknownPairs(t *testing.T) {
	cases := [][2]string{
		{ServiceGPTImage, ModelFluxKontextPro},
		{ServiceFlux, ModelKlingVideo},
		{ServiceJobs, "midjourney/v6"},
		{"unknown", ModelGPTImage},
	}
	for _, tc := range cases {
		_, err := DecodeRequest(tc[0], tc[1], json.RawMessage(`{"prompt":"x"}`))
		if !errors.Is(err, ErrUnsupportedModel) {
			t.Fatalf("%s/%s: err = %v, want ErrUnsupportedModel", tc[0], tc[1], err)
		}
	}
}

func TestDecodeRequestToleratesEmptyInput(t *testing.T) {
	req, err := DecodeRequest(ServiceGPTImage, ModelGPTImage, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := req.(GPTImageRequest); !ok {
		t.Fatalf("req = %T", req)
	}
}

func TestDecodeRequestRejectsMalformedInput(t *testing.T) {
	if _, err := DecodeRequest(ServiceJobs, ModelImagen, json.RawMessage(`{"prompt":`)); err == nil {
		t.Fatalf("expected error for malformed input")
	}
}
