package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dudu/eyescreen/internal/logging"
)

// Recorder is the persistence surface the service needs.
type Recorder interface {
	Insert(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Request is one screening submission.
type Request struct {
	SessionID    string
	Provenance   string
	QualityScore float64
	JPEG         []byte
	Patient      PatientDetails
}

// Service runs the full screening flow for one captured image:
// classify, read vitals, advise, persist, archive. Classification is the
// only hard dependency; vitals, advisor, store and archive degrade
// gracefully when absent or failing.
type Service struct {
	classifier Classifier
	vitals     VitalsClient
	advisor    Advisor
	store      Recorder
	archive    Archive
	log        *logrus.Entry
}

// NewService wires the flow. classifier is required; any other
// collaborator may be nil.
func NewService(classifier Classifier, vitals VitalsClient, advisor Advisor, store Recorder, archive Archive) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("screening: classifier is required")
	}
	if archive == nil {
		archive = NopArchive{}
	}
	return &Service{
		classifier: classifier,
		vitals:     vitals,
		advisor:    advisor,
		store:      store,
		archive:    archive,
		log:        logging.WithComponent("screening"),
	}, nil
}

// Screen processes one captured image end to end.
func (s *Service) Screen(ctx context.Context, req Request) (Record, error) {
	if len(req.JPEG) == 0 {
		return Record{}, errors.New("screening: empty image")
	}

	cls, err := s.classifier.Classify(ctx, req.JPEG)
	if err != nil {
		return Record{}, fmt.Errorf("classification: %w", err)
	}

	var vitals *VitalSigns
	if s.vitals != nil {
		v, err := s.vitals.Latest(ctx)
		switch {
		case err == nil:
			vitals = &v
		case errors.Is(err, ErrNoVitals):
			s.log.Debug("vitals channel empty")
		default:
			s.log.WithError(err).Warn("vitals lookup failed")
		}
	}

	rec := Record{
		ID:             uuid.NewString(),
		SessionID:      req.SessionID,
		Provenance:     req.Provenance,
		QualityScore:   req.QualityScore,
		Classification: cls,
		Vitals:         vitals,
		CreatedAt:      time.Now().UTC(),
	}

	if s.advisor != nil {
		advice, err := s.advisor.Advise(ctx, cls, req.Patient, vitals)
		if err != nil {
			s.log.WithError(err).Warn("advisor failed, using fallback")
			advice = fallbackRecommendation(cls)
		}
		rec.Recommendation = advice
	} else {
		rec.Recommendation = fallbackRecommendation(cls)
	}

	if url, err := s.archive.Upload(ctx, rec.ID, req.JPEG); err != nil {
		s.log.WithError(err).Warn("image archival failed")
	} else {
		rec.ImageURL = url
	}

	if s.store != nil {
		if err := s.store.Insert(ctx, rec); err != nil {
			return Record{}, fmt.Errorf("persisting screening: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"screening":  rec.ID,
		"class":      cls.Class,
		"confidence": cls.Confidence,
	}).Info("screening complete")
	return rec, nil
}

// Recent proxies the store listing; empty when no store is configured.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Recent(ctx, limit)
}
