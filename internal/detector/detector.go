// Package detector is the narrow contract with the external object
// detection service. Only the bounding-box provider interface is
// specified here; everything past the HTTP boundary belongs to the
// detection server.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"time"
)

// Detection is one predicted object in an image.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
}

// Bounds returns the detection's bounding box as an image rectangle.
func (d Detection) Bounds() image.Rectangle {
	return image.Rect(d.XMin, d.YMin, d.XMax, d.YMax)
}

// Detector locates objects within an encoded image.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]Detection, error)
}

// Client talks to a CodeProject.AI-style vision endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a detector client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type detectionResponse struct {
	Success     bool        `json:"success"`
	Predictions []Detection `json:"predictions"`
	Error       string      `json:"error"`
}

// Detect posts the image to the detection endpoint and returns its
// predictions. An empty prediction list is a valid result, not an
// error.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]Detection, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return nil, fmt.Errorf("build detection request: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("build detection request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build detection request: %w", err)
	}

	url := c.baseURL + "/v1/vision/detection"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("build detection request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var parsed detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}
	if !parsed.Success && parsed.Error != "" {
		return nil, fmt.Errorf("detector error: %s", parsed.Error)
	}
	return parsed.Predictions, nil
}
