// Package screening runs a captured eye image through the downstream
// anemia-screening flow: classification, vitals lookup, recommendation,
// persistence, and archival.
package screening

import "time"

// Classification is the parsed output of the detection model.
type Classification struct {
	Class         string  `json:"class"`
	Confidence    float64 `json:"confidence"`
	InferenceTime float64 `json:"inference_time"`
}

// Anemic reports whether the classifier flagged the image.
func (c Classification) Anemic() bool { return c.Class == "anemia" }

// PatientDetails is optional demographic context for the advisor.
type PatientDetails struct {
	Gender         string `json:"gender,omitempty"`
	AgeGroup       string `json:"age_group,omitempty"`
	Pregnant       string `json:"pregnant,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

// VitalSigns is the latest sensor reading from the vitals channel.
type VitalSigns struct {
	HeartRate   float64   `json:"heart_rate"`
	OxygenLevel float64   `json:"oxygen_level"`
	Status      string    `json:"status"`
	SampledAt   time.Time `json:"sampled_at"`
	EntryID     int       `json:"entry_id"`
}

// Recommendation is the structured advice document for one screening.
type Recommendation struct {
	Assessment       string   `json:"assessment"`
	Recommendations  []string `json:"recommendations"`
	Foods            []string `json:"foods"`
	Lifestyle        []string `json:"lifestyle"`
	MedicalAttention string   `json:"medical_attention"`
	FollowUp         string   `json:"follow_up"`
}

// Record is one persisted screening result.
type Record struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id"`
	Provenance     string         `json:"provenance"`
	QualityScore   float64        `json:"quality_score"`
	Classification Classification `json:"classification"`
	Vitals         *VitalSigns    `json:"vitals,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
	ImageURL       string         `json:"image_url,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
