package provider

import (
	"fmt"

	"mediagen/internal/domain"
)

// Endpoint pairs per provider model family. Query endpoints take the external
// task id as the taskId query parameter.
const (
	gptImageCreatePath = "/api/v1/gpt4o-image/generate"
	gptImageQueryPath  = "/api/v1/gpt4o-image/record-info"

	fluxCreatePath = "/api/v1/flux/kontext/generate"
	fluxQueryPath  = "/api/v1/flux/kontext/record-info"

	jobsCreatePath = "/api/v1/jobs/createTask"
	jobsQueryPath  = "/api/v1/jobs/recordInfo"
)

type gptImageBody struct {
	Prompt    string   `json:"prompt"`
	Size      string   `json:"size,omitempty"`
	NVariants int      `json:"nVariants,omitempty"`
	FilesURL  []string `json:"filesUrl,omitempty"`
}

type fluxKontextBody struct {
	Prompt           string `json:"prompt"`
	InputImage       string `json:"inputImage,omitempty"`
	AspectRatio      string `json:"aspectRatio,omitempty"`
	Model            string `json:"model"`
	OutputFormat     string `json:"outputFormat,omitempty"`
	PromptUpsampling bool   `json:"promptUpsampling,omitempty"`
}

// The jobs API nests model parameters under input instead of flattening them
// at the request root.
type jobsCreateBody struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type klingVideoInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	StartImageURL  string `json:"start_image_url,omitempty"`
	EndImageURL    string `json:"end_image_url,omitempty"`
	Duration       int    `json:"duration,omitempty"`
	Mode           string `json:"mode,omitempty"`
}

type imagenInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	NumImages      int    `json:"num_images,omitempty"`
}

// toWireRequest maps a generation request onto its creation endpoint and wire
// body. The variant set is closed; an unhandled variant is a programming
// error, not a runtime condition.
func toWireRequest(req domain.GenerationRequest) (string, any) {
	switch r := req.(type) {
	case domain.GPTImageRequest:
		return gptImageCreatePath, gptImageBody{
			Prompt:    r.Prompt,
			Size:      r.Size,
			NVariants: r.NVariants,
			FilesURL:  r.FilesURL,
		}
	case domain.FluxKontextRequest:
		return fluxCreatePath, fluxKontextBody{
			Prompt:           r.Prompt,
			InputImage:       r.InputImage,
			AspectRatio:      r.AspectRatio,
			Model:            r.Ref().Model,
			OutputFormat:     r.OutputFormat,
			PromptUpsampling: r.PromptUpsampling,
		}
	case domain.KlingVideoRequest:
		return jobsCreatePath, jobsCreateBody{
			Model: r.Ref().Model,
			Input: klingVideoInput{
				Prompt:         r.Prompt,
				NegativePrompt: r.NegativePrompt,
				StartImageURL:  r.StartImageURL,
				EndImageURL:    r.EndImageURL,
				Duration:       r.Duration,
				Mode:           r.Mode,
			},
		}
	case domain.ImagenRequest:
		return jobsCreatePath, jobsCreateBody{
			Model: r.Ref().Model,
			Input: imagenInput{
				Prompt:         r.Prompt,
				NegativePrompt: r.NegativePrompt,
				AspectRatio:    r.AspectRatio,
				NumImages:      r.NumImages,
			},
		}
	default:
		panic(fmt.Sprintf("provider: unhandled generation request variant %T", req))
	}
}

// queryPath selects the status endpoint for a model.
func queryPath(ref domain.ModelRef) (string, error) {
	switch ref.Service {
	case domain.ServiceGPTImage:
		return gptImageQueryPath, nil
	case domain.ServiceFlux:
		return fluxQueryPath, nil
	case domain.ServiceJobs:
		return jobsQueryPath, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedModel, ref)
	}
}
