package vapi

import "strings"

// Default voice used when the requested provider or voice is unknown.
const (
	DefaultVoiceProvider = "openai"
	DefaultVoiceID       = "alloy"
)

// ElevenLabs voice IDs for the generic male/female selections.
const (
	elevenLabsMaleVoice   = "29vD33N1CtxCmqQRPOHJ"
	elevenLabsFemaleVoice = "qBDvhofpxp92JgXJxDjB"
)

// VoiceOption describes a selectable voice for the frontend picker.
type VoiceOption struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Gender   string `json:"gender"`
}

// VoiceOptions lists the voices the dashboard offers, grouped by provider.
func VoiceOptions() []VoiceOption {
	return []VoiceOption{
		{ID: "alloy", Name: "Alloy", Provider: "openai", Gender: "neutral"},
		{ID: "echo", Name: "Echo", Provider: "openai", Gender: "male"},
		{ID: "fable", Name: "Fable", Provider: "openai", Gender: "neutral"},
		{ID: "onyx", Name: "Onyx", Provider: "openai", Gender: "male"},
		{ID: "nova", Name: "Nova", Provider: "openai", Gender: "female"},
		{ID: "shimmer", Name: "Shimmer", Provider: "openai", Gender: "female"},
		{ID: "en-US-ChristopherNeural", Name: "Christopher", Provider: "azure", Gender: "male"},
		{ID: "en-US-JennyNeural", Name: "Jenny", Provider: "azure", Gender: "female"},
		{ID: elevenLabsMaleVoice, Name: "Josh", Provider: "11labs", Gender: "male"},
		{ID: elevenLabsFemaleVoice, Name: "Rachel", Provider: "11labs", Gender: "female"},
	}
}

// SafeVoiceConfig maps a requested provider/voice/gender triple onto a voice
// payload the provider is guaranteed to accept. Unknown providers fall back
// to the OpenAI default, and gender hints override ambiguous voice IDs.
func SafeVoiceConfig(provider, voiceID, gender string) VoicePayload {
	provider = strings.ToLower(strings.TrimSpace(provider))
	gender = strings.ToLower(strings.TrimSpace(gender))
	voice := strings.TrimSpace(voiceID)

	switch provider {
	case "openai":
		switch gender {
		case "male":
			return VoicePayload{Provider: "openai", VoiceID: "echo"}
		case "female":
			return VoicePayload{Provider: "openai", VoiceID: "nova"}
		}
		if voice == "" {
			voice = DefaultVoiceID
		}
		return VoicePayload{Provider: "openai", VoiceID: voice}

	case "azure":
		switch gender {
		case "male":
			return VoicePayload{Provider: "azure", VoiceID: "en-US-ChristopherNeural"}
		case "female":
			return VoicePayload{Provider: "azure", VoiceID: "en-US-JennyNeural"}
		}
		if voice == "" {
			voice = "en-US-JennyNeural"
		}
		return VoicePayload{Provider: "azure", VoiceID: voice}

	case "11labs", "elevenlabs":
		id := elevenLabsVoiceID(voice, gender)
		return VoicePayload{
			Provider:        "11labs",
			VoiceID:         id,
			Model:           "eleven_flash_v2_5",
			Stability:       ptr(0.5),
			SimilarityBoost: ptr(0.75),
		}
	}

	return VoicePayload{Provider: DefaultVoiceProvider, VoiceID: DefaultVoiceID}
}

// elevenLabsVoiceID resolves generic voice aliases to concrete ElevenLabs IDs.
// Anything that is not a recognized alias is assumed to be a real voice ID.
func elevenLabsVoiceID(voice, gender string) string {
	switch strings.ToLower(voice) {
	case "female", "female-voice", "rachel":
		return elevenLabsFemaleVoice
	case "male", "male-voice", "josh":
		return elevenLabsMaleVoice
	}
	if gender == "female" {
		return elevenLabsFemaleVoice
	}
	if gender == "male" {
		return elevenLabsMaleVoice
	}
	if voice != "" {
		return voice
	}
	return elevenLabsMaleVoice
}

func ptr[T any](v T) *T { return &v }
