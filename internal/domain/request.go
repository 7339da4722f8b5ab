package domain

import (
	"encoding/json"
	"fmt"
)

// Service and model identifiers for the supported provider models. The pair
// (service, model) uniquely selects request and response transformation logic.
const (
	ServiceGPTImage = "gpt4o-image"
	ServiceFlux     = "flux"
	ServiceJobs     = "jobs"

	ModelGPTImage       = "gpt4o-image"
	ModelFluxKontextPro = "flux-kontext-pro"
	ModelFluxKontextMax = "flux-kontext-max"
	ModelKlingVideo     = "kling/v2-master"
	ModelImagen         = "google/imagen4"
)

// ModelRef is the (service, model) discriminator pair.
type ModelRef struct {
	Service string
	Model   string
}

func (r ModelRef) String() string {
	return r.Service + "/" + r.Model
}

// GenerationRequest is the closed set of provider generation requests. Each
// variant carries only the parameters its model accepts; no parameter is
// shared across variants. New variants require a matching case in the wire
// transform, which panics on anything it does not recognize.
type GenerationRequest interface {
	Ref() ModelRef
	generationRequest()
}

// GPTImageRequest generates images from a prompt, optionally grounded on
// reference images. Parameters travel flattened at the request root.
type GPTImageRequest struct {
	Prompt    string   `json:"prompt"`
	Size      string   `json:"size,omitempty"`
	NVariants int      `json:"nVariants,omitempty"`
	FilesURL  []string `json:"filesUrl,omitempty"`
}

func (GPTImageRequest) Ref() ModelRef {
	return ModelRef{Service: ServiceGPTImage, Model: ModelGPTImage}
}

func (GPTImageRequest) generationRequest() {}

// FluxKontextRequest edits or generates an image with the Flux Kontext
// models. Parameters travel flattened at the request root.
type FluxKontextRequest struct {
	Prompt           string `json:"prompt"`
	InputImage       string `json:"inputImage,omitempty"`
	AspectRatio      string `json:"aspectRatio,omitempty"`
	Model            string `json:"model,omitempty"`
	OutputFormat     string `json:"outputFormat,omitempty"`
	PromptUpsampling bool   `json:"promptUpsampling,omitempty"`
}

func (r FluxKontextRequest) Ref() ModelRef {
	model := r.Model
	if model == "" {
		model = ModelFluxKontextPro
	}
	return ModelRef{Service: ServiceFlux, Model: model}
}

func (FluxKontextRequest) generationRequest() {}

// KlingVideoRequest generates a video between a start and an end frame.
// Parameters are nested under the jobs API input object.
type KlingVideoRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	StartImageURL  string `json:"start_image_url,omitempty"`
	EndImageURL    string `json:"end_image_url,omitempty"`
	Duration       int    `json:"duration,omitempty"`
	Mode           string `json:"mode,omitempty"`
}

func (KlingVideoRequest) Ref() ModelRef {
	return ModelRef{Service: ServiceJobs, Model: ModelKlingVideo}
}

func (KlingVideoRequest) generationRequest() {}

// ImagenRequest generates images from text only. Parameters are nested under
// the jobs API input object.
type ImagenRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	NumImages      int    `json:"num_images,omitempty"`
}

func (ImagenRequest) Ref() ModelRef {
	return ModelRef{Service: ServiceJobs, Model: ModelImagen}
}

func (ImagenRequest) generationRequest() {}

// DecodeRequest resolves the variant selected by (service, model) and decodes
// the caller-supplied parameters into it. Unknown pairs return
// ErrUnsupportedModel.
func DecodeRequest(service, model string, input json.RawMessage) (GenerationRequest, error) {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	switch {
	case service == ServiceGPTImage && model == ModelGPTImage:
		var req GPTImageRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", model, err)
		}
		return req, nil
	case service == ServiceFlux && (model == ModelFluxKontextPro || model == ModelFluxKontextMax):
		var req FluxKontextRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", model, err)
		}
		req.Model = model
		return req, nil
	case service == ServiceJobs && model == ModelKlingVideo:
		var req KlingVideoRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", model, err)
		}
		return req, nil
	case service == ServiceJobs && model == ModelImagen:
		var req ImagenRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", model, err)
		}
		return req, nil
	default:
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedModel, service, model)
	}
}
