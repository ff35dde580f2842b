package speech

// Voice is a provider voice identifier.
type Voice string

// Premade provider voices suitable for reading to young children.
const (
	VoiceRachel Voice = "21m00Tcm4TlvDq8ikWAM"
	VoiceBella  Voice = "EXAVITQu4vr4xnSDxMaL"
	VoiceAntoni Voice = "ErXwobaYiN019PkySvjV"
	VoiceJosh   Voice = "TxGEqnHWrfWFTfGW9XjX"
)

// DefaultVoice is used when the caller does not pick one.
const DefaultVoice = VoiceBella

// Model selects the synthesis model; the turbo model trades some quality
// for lower latency.
type Model string

const (
	ModelMonolingualV1  Model = "eleven_monolingual_v1"
	ModelMultilingualV2 Model = "eleven_multilingual_v2"
	ModelTurboV2        Model = "eleven_turbo_v2"
)

// DefaultModel is used when the caller does not pick one.
const DefaultModel = ModelTurboV2

// VoiceInfo describes one voice in the provider catalog.
type VoiceInfo struct {
	ID          string            `json:"voice_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels"`
}

// VoiceSettings are the synthesis tunables. Stability controls consistency
// versus expressiveness, SimilarityBoost fidelity to the reference voice,
// Style the amount of exaggeration, and Speed the playback rate. All values
// are clamped before transmission; Speed to [0.7, 1.2], the rest to [0, 1].
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	UseSpeakerBoost bool
	Speed           float64
}

// DefaultVoiceSettings returns the settings used for lesson narration.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		UseSpeakerBoost: true,
		Speed:           1.0,
	}
}

const (
	minSpeed = 0.7
	maxSpeed = 1.2
)

// clamped returns a copy with every tunable forced into its valid range.
func (v VoiceSettings) clamped() VoiceSettings {
	v.Stability = clamp(v.Stability, 0, 1)
	v.SimilarityBoost = clamp(v.SimilarityBoost, 0, 1)
	v.Style = clamp(v.Style, 0, 1)
	v.Speed = clamp(v.Speed, minSpeed, maxSpeed)
	return v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
