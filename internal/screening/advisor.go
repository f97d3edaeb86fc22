package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Advisor turns a classification plus patient context into a structured
// recommendation document.
type Advisor interface {
	Advise(ctx context.Context, cls Classification, patient PatientDetails, vitals *VitalSigns) (Recommendation, error)
}

// ChatAdvisor asks an OpenAI-compatible chat-completions endpoint for a
// JSON recommendation document. When the model reply fails to parse, a
// deterministic fallback keyed on the diagnosis is returned instead of an
// error, so the screening flow never stalls on a chatty model.
type ChatAdvisor struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

func NewChatAdvisor(endpoint, model, apiKey string) *ChatAdvisor {
	return &ChatAdvisor{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

const advisorSystem = "You are a medical AI assistant providing evidence-based health recommendations. " +
	"Always emphasize consulting healthcare professionals for medical decisions. Respond only with valid JSON."

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *ChatAdvisor) Advise(ctx context.Context, cls Classification, patient PatientDetails, vitals *VitalSigns) (Recommendation, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: advisorSystem},
			{Role: "user", Content: advisorPrompt(cls, patient, vitals)},
		},
	})
	if err != nil {
		return Recommendation{}, fmt.Errorf("encoding advisor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return Recommendation{}, fmt.Errorf("building advisor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return Recommendation{}, fmt.Errorf("advisor request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Recommendation{}, fmt.Errorf("advisor returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Recommendation{}, fmt.Errorf("decoding advisor response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return fallbackRecommendation(cls), nil
	}

	var rec Recommendation
	if err := json.Unmarshal([]byte(extractJSON(cr.Choices[0].Message.Content)), &rec); err != nil {
		return fallbackRecommendation(cls), nil
	}
	return rec, nil
}

func advisorPrompt(cls Classification, patient PatientDetails, vitals *VitalSigns) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide personalized health recommendations based on these anemia screening results.\n\n")
	fmt.Fprintf(&b, "DIAGNOSIS RESULTS:\n- Anemia Detection: %s\n- Model Confidence: %.0f%%\n\n",
		cls.Class, cls.Confidence*100)
	fmt.Fprintf(&b, "PATIENT INFORMATION:\n- Gender: %s\n- Age Group: %s\n- Pregnancy Status: %s\n- Medical History: %s\n\n",
		orUnspecified(patient.Gender), orUnspecified(patient.AgeGroup),
		orUnspecified(patient.Pregnant), orUnspecified(patient.MedicalHistory))
	if vitals != nil {
		fmt.Fprintf(&b, "VITAL SIGNS:\n- Heart Rate: %.0f BPM\n- Oxygen Level: %.0f%%\n\n",
			vitals.HeartRate, vitals.OxygenLevel)
	}
	b.WriteString(`Respond as JSON with this structure:
{
  "assessment": "...",
  "recommendations": ["..."],
  "foods": ["..."],
  "lifestyle": ["..."],
  "medical_attention": "...",
  "follow_up": "..."
}`)
	return b.String()
}

func orUnspecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}

// extractJSON trims any prose the model wrapped around the JSON object.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

func fallbackRecommendation(cls Classification) Recommendation {
	pct := cls.Confidence * 100
	if cls.Anemic() {
		return Recommendation{
			Assessment: fmt.Sprintf("The analysis suggests possible anemia with %.0f%% confidence. This requires medical evaluation for confirmation.", pct),
			Recommendations: []string{
				"Consult with a healthcare professional for blood tests",
				"Increase iron-rich foods in your diet",
				"Consider iron supplements under medical supervision",
				"Monitor symptoms like fatigue and weakness",
			},
			Foods: []string{
				"Spinach and dark leafy greens",
				"Red meat, poultry, and fish",
				"Beans, lentils, and chickpeas",
				"Fortified cereals and bread",
			},
			Lifestyle: []string{
				"Regular moderate exercise",
				"Adequate sleep (7-9 hours nightly)",
				"Avoid excessive tea or coffee with meals",
			},
			MedicalAttention: "Seek immediate medical attention for severe fatigue, shortness of breath, chest pain, or dizziness. Schedule a blood test within 1-2 weeks.",
			FollowUp:         "Follow up with blood tests in 4-6 weeks after starting treatment.",
		}
	}
	return Recommendation{
		Assessment: fmt.Sprintf("The analysis indicates normal conjunctival appearance with %.0f%% confidence. Continue maintaining good health practices.", pct),
		Recommendations: []string{
			"Maintain a balanced diet rich in iron and vitamins",
			"Continue regular health check-ups",
			"Stay hydrated and get adequate sleep",
		},
		Foods: []string{
			"Variety of fruits and vegetables",
			"Lean proteins",
			"Whole grains",
			"Nuts and seeds",
		},
		Lifestyle: []string{
			"Regular moderate exercise",
			"Adequate sleep (7-9 hours nightly)",
			"Stress management techniques",
		},
		MedicalAttention: "Consult a healthcare provider if you develop symptoms like persistent fatigue, weakness, or pale skin.",
		FollowUp:         "Repeat anemia screening annually or as recommended by your healthcare provider.",
	}
}
