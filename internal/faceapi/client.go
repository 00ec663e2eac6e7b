package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/geoface/internal/imageio"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"
	uploadQuality       = 95
)

// Client computes face landmarks and embeddings using the embedding server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new embedding server client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// faceDetection represents a single detected face in the server response
type faceDetection struct {
	FaceIndex int         `json:"face_index"`
	Dim       int         `json:"dim"`
	Embedding []float32   `json:"embedding"`
	BBox      []float64   `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64     `json:"det_score"`
	Landmarks *eyePoints  `json:"landmarks,omitempty"`
	Kps       [][]float64 `json:"kps,omitempty"` // 5-point keypoints: eyes, nose, mouth corners
}

type eyePoints struct {
	LeftEye  [][]float64 `json:"left_eye"`
	RightEye [][]float64 `json:"right_eye"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *Client) analyze(ctx context.Context, img image.Image) (*faceResponse, error) {
	data, err := imageio.EncodeJPEG(img, uploadQuality)
	if err != nil {
		return nil, err
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", data)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}

// Landmarks returns the eye landmarks of every face the server found, in
// detection order. A face without usable eye points has empty eyes.
func (c *Client) Landmarks(ctx context.Context, img image.Image) ([]Landmarks, error) {
	resp, err := c.analyze(ctx, img)
	if err != nil {
		return nil, err
	}

	result := make([]Landmarks, len(resp.Faces))
	for i, f := range resp.Faces {
		result[i], _ = f.eyes()
	}
	return result, nil
}

// Encodings detects faces and returns their embeddings in server order.
func (c *Client) Encodings(ctx context.Context, img image.Image) ([]Face, error) {
	resp, err := c.analyze(ctx, img)
	if err != nil {
		return nil, err
	}

	faces := make([]Face, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.Embedding) == 0 {
			continue
		}
		emb := make([]float64, len(f.Embedding))
		for i, v := range f.Embedding {
			emb[i] = float64(v)
		}
		faces = append(faces, Face{
			Box:       bboxToRect(f.BBox),
			Embedding: emb,
			Score:     f.DetScore,
		})
	}
	return faces, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (f *faceDetection) eyes() (Landmarks, bool) {
	if f.Landmarks != nil && len(f.Landmarks.LeftEye) > 0 && len(f.Landmarks.RightEye) > 0 {
		return Landmarks{
			LeftEye:  toPoints(f.Landmarks.LeftEye),
			RightEye: toPoints(f.Landmarks.RightEye),
		}, true
	}
	if len(f.Kps) >= 2 && len(f.Kps[0]) >= 2 && len(f.Kps[1]) >= 2 {
		return Landmarks{
			LeftEye:  toPoints(f.Kps[0:1]),
			RightEye: toPoints(f.Kps[1:2]),
		}, true
	}
	return Landmarks{}, false
}

func toPoints(raw [][]float64) []Point {
	pts := make([]Point, 0, len(raw))
	for _, p := range raw {
		if len(p) < 2 {
			continue
		}
		pts = append(pts, Point{X: p[0], Y: p[1]})
	}
	return pts
}

func bboxToRect(bbox []float64) image.Rectangle {
	if len(bbox) != 4 {
		return image.Rectangle{}
	}
	return image.Rect(int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3]))
}
