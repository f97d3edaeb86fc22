package screening

import (
	"context"
	"errors"
	"testing"
)

type fakeClassifier struct {
	cls Classification
	err error
}

func (f fakeClassifier) Classify(ctx context.Context, jpegData []byte) (Classification, error) {
	return f.cls, f.err
}

type fakeVitals struct {
	v   VitalSigns
	err error
}

func (f fakeVitals) Latest(ctx context.Context) (VitalSigns, error) { return f.v, f.err }

type fakeRecorder struct {
	inserted  []Record
	insertErr error
}

func (f *fakeRecorder) Insert(ctx context.Context, rec Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeRecorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	return f.inserted, nil
}

func TestServiceScreenHappyPath(t *testing.T) {
	store := &fakeRecorder{}
	svc, err := NewService(
		fakeClassifier{cls: Classification{Class: "anemia", Confidence: 0.8}},
		fakeVitals{v: VitalSigns{HeartRate: 72, OxygenLevel: 98, Status: "normal"}},
		nil, store, nil,
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	rec, err := svc.Screen(context.Background(), Request{
		SessionID:    "sess-1",
		Provenance:   "ai",
		QualityScore: 0.8,
		JPEG:         []byte{0xff, 0xd8},
	})
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}

	if rec.ID == "" {
		t.Error("Expected a generated screening ID")
	}
	if rec.SessionID != "sess-1" || rec.Provenance != "ai" {
		t.Errorf("Request fields not carried through: %+v", rec)
	}
	if rec.Vitals == nil || rec.Vitals.HeartRate != 72 {
		t.Errorf("Expected vitals on the record, got %+v", rec.Vitals)
	}
	if rec.Recommendation.Assessment == "" {
		t.Error("Expected a fallback recommendation without an advisor")
	}
	if len(store.inserted) != 1 || store.inserted[0].ID != rec.ID {
		t.Errorf("Expected the record persisted, got %d rows", len(store.inserted))
	}
}

func TestServiceScreenDegradesGracefully(t *testing.T) {
	// No vitals, no advisor, no store, no archive: classification alone
	// still produces a complete record.
	svc, err := NewService(
		fakeClassifier{cls: Classification{Class: "normal", Confidence: 0.95}},
		fakeVitals{err: errors.New("sensor offline")},
		nil, nil, nil,
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	rec, err := svc.Screen(context.Background(), Request{JPEG: []byte{1}})
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if rec.Vitals != nil {
		t.Error("Expected no vitals when the sensor is offline")
	}
	if rec.Classification.Class != "normal" {
		t.Errorf("Unexpected classification %+v", rec.Classification)
	}
}

func TestServiceScreenFailures(t *testing.T) {
	classifyErr := errors.New("model down")
	svc, _ := NewService(fakeClassifier{err: classifyErr}, nil, nil, nil, nil)

	if _, err := svc.Screen(context.Background(), Request{JPEG: []byte{1}}); !errors.Is(err, classifyErr) {
		t.Errorf("Expected the classifier error surfaced, got %v", err)
	}

	if _, err := svc.Screen(context.Background(), Request{}); err == nil {
		t.Error("Expected an error for an empty image")
	}

	insertErr := errors.New("db down")
	svc, _ = NewService(fakeClassifier{}, nil, nil, &fakeRecorder{insertErr: insertErr}, nil)
	if _, err := svc.Screen(context.Background(), Request{JPEG: []byte{1}}); !errors.Is(err, insertErr) {
		t.Errorf("Expected the store error surfaced, got %v", err)
	}
}

func TestServiceRequiresClassifier(t *testing.T) {
	if _, err := NewService(nil, nil, nil, nil, nil); err == nil {
		t.Error("Expected an error without a classifier")
	}
}

func TestServiceRecentWithoutStore(t *testing.T) {
	svc, _ := NewService(fakeClassifier{}, nil, nil, nil, nil)
	recs, err := svc.Recent(context.Background(), 10)
	if err != nil || recs != nil {
		t.Errorf("Expected empty listing without a store, got %v / %v", recs, err)
	}
}
