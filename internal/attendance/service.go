// Package attendance ties recognition, geolocation and storage together.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/kozaktomas/geoface/internal/database"
	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/geolocate"
	"github.com/kozaktomas/geoface/internal/imageio"
	"github.com/kozaktomas/geoface/internal/logging"
)

// Status is the result category of an attendance attempt.
type Status string

const (
	StatusRecorded            Status = "recorded"
	StatusInputUnusable       Status = "input_unusable"
	StatusNoFace              Status = "no_face"
	StatusNoMatch             Status = "no_match"
	StatusLocationUnavailable Status = "location_unavailable"
)

// Outcome describes what happened to one attendance attempt. Storage and
// collaborator failures other than geolocation are returned as errors instead.
type Outcome struct {
	Status   Status                     `json:"status"`
	Name     string                     `json:"name,omitempty"`
	Faces    []facematch.FaceMatch      `json:"faces,omitempty"`
	Location *geolocate.Location        `json:"location,omitempty"`
	Record   *database.AttendanceRecord `json:"record,omitempty"`
	Detail   string                     `json:"detail,omitempty"`
}

// Recorded reports whether a record was written.
func (o Outcome) Recorded() bool {
	return o.Status == StatusRecorded
}

// Locator resolves the current location.
type Locator interface {
	Current(ctx context.Context) (*geolocate.Location, error)
}

// Service recognises faces and records attendance.
type Service struct {
	encoder faceapi.Encoder
	matcher *facematch.Matcher
	locator Locator
	store   database.AttendanceWriter
	logger  *slog.Logger
}

// NewService creates an attendance service.
func NewService(encoder faceapi.Encoder, matcher *facematch.Matcher, locator Locator, store database.AttendanceWriter, logger *slog.Logger) *Service {
	return &Service{
		encoder: encoder,
		matcher: matcher,
		locator: locator,
		store:   store,
		logger:  logging.OrDefault(logger),
	}
}

// Matcher returns the matcher used for recognition.
func (s *Service) Matcher() *facematch.Matcher {
	return s.matcher
}

// Recognize detects every face in img and matches it against the gallery.
// It returns faceapi.ErrNoFace when no face is found.
func (s *Service) Recognize(ctx context.Context, img image.Image) ([]facematch.FaceMatch, error) {
	faces, err := s.encoder.Encodings(ctx, imageio.ToRGB(img))
	if err != nil {
		return nil, fmt.Errorf("analysing image: %w", err)
	}
	if len(faces) == 0 {
		return nil, faceapi.ErrNoFace
	}
	return s.matcher.MatchFaces(faces), nil
}

// RecognizeFile loads path and recognises the faces in it.
func (s *Service) RecognizeFile(ctx context.Context, path string) ([]facematch.FaceMatch, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}
	return s.Recognize(ctx, img)
}

// Mark records attendance for an enrolled identity at the current location.
func (s *Service) Mark(ctx context.Context, name string) (Outcome, error) {
	id, ok := s.matcher.Gallery.Lookup(name)
	if !ok {
		return Outcome{Status: StatusNoMatch, Name: name, Detail: "identity not enrolled"}, nil
	}

	loc, err := s.locator.Current(ctx)
	if err != nil {
		s.logger.Warn("attendance not recorded, location unavailable", "identity", id.Name, "error", err)
		return Outcome{Status: StatusLocationUnavailable, Name: id.Name, Detail: err.Error()}, nil
	}

	rec, err := s.store.Record(ctx, &database.AttendanceRecord{
		EmployeeName: id.Name,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		LocationName: loc.Place,
		ImagePath:    id.Reference,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("recording attendance for %s: %w", id.Name, err)
	}

	s.logger.Info("attendance recorded", "identity", id.Name, "id", rec.ID, "place", loc.Place)
	return Outcome{Status: StatusRecorded, Name: id.Name, Location: loc, Record: rec}, nil
}

// Attend recognises img and records attendance for the first matched face.
func (s *Service) Attend(ctx context.Context, img image.Image) (Outcome, error) {
	matches, err := s.Recognize(ctx, img)
	if errors.Is(err, faceapi.ErrNoFace) {
		return Outcome{Status: StatusNoFace}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return s.AttendMatches(ctx, matches)
}

// AttendMatches records attendance for the first matched face of an
// already recognised frame.
func (s *Service) AttendMatches(ctx context.Context, matches []facematch.FaceMatch) (Outcome, error) {
	if len(matches) == 0 {
		return Outcome{Status: StatusNoFace}, nil
	}
	fm, ok := facematch.FirstMatched(matches)
	if !ok {
		return Outcome{Status: StatusNoMatch, Faces: matches}, nil
	}

	out, err := s.Mark(ctx, fm.Name)
	if err != nil {
		return Outcome{}, err
	}
	out.Faces = matches
	return out, nil
}

// AttendFile loads path and records attendance for it.
func (s *Service) AttendFile(ctx context.Context, path string) (Outcome, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return unusable(err), nil
	}
	return s.Attend(ctx, img)
}

// AttendBytes decodes an uploaded image and records attendance for it.
func (s *Service) AttendBytes(ctx context.Context, data []byte, name string) (Outcome, error) {
	img, err := imageio.LoadBytes(data, name)
	if err != nil {
		return unusable(err), nil
	}
	return s.Attend(ctx, img)
}

func unusable(err error) Outcome {
	return Outcome{Status: StatusInputUnusable, Detail: err.Error()}
}
