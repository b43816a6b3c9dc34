package httpapi

import "net/http"

type voiceOption struct {
	ID     string `json:"id"`
	Gender string `json:"gender"`
	Tone   string `json:"tone"`
}

type languageVoices struct {
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	VoiceOptions []voiceOption `json:"voiceOptions"`
}

// voiceCatalog is the curated set of synthesis voices per language. IDs are
// Cartesia voice identifiers.
var voiceCatalog = map[string]languageVoices{
	"en": {Name: "English", Code: "en", VoiceOptions: []voiceOption{
		{ID: "41534e16-2966-4c6b-9670-111411def906", Gender: "male", Tone: "energetic"},
		{ID: "79a125e8-cd45-4c13-8a67-188112f4dd22", Gender: "female", Tone: "elegant"},
	}},
	"fr": {Name: "French", Code: "fr", VoiceOptions: []voiceOption{
		{ID: "a249eaff-1e96-4d2c-b23b-12efa4f66f41", Gender: "female", Tone: "conversational"},
		{ID: "ab7c61f5-3daa-47dd-a23b-4ac0aac5f5c3", Gender: "male", Tone: "friendly"},
	}},
	"de": {Name: "German", Code: "de", VoiceOptions: []voiceOption{
		{ID: "fb9fcab6-aba5-49ec-8d7e-3f1100296dde", Gender: "male", Tone: "neutral"},
		{ID: "3f4ade23-6eb4-4279-ab05-6a144947c4d5", Gender: "female", Tone: "neutral"},
	}},
	"es": {Name: "Spanish", Code: "es", VoiceOptions: []voiceOption{
		{ID: "db832ebd-3cb6-42e7-9d47-912b425adbaa", Gender: "female", Tone: "neutral"},
		{ID: "15d0c2e2-8d29-44c3-be23-d585d5f154a1", Gender: "male", Tone: "neutral"},
	}},
	"pt": {Name: "Portuguese", Code: "pt", VoiceOptions: []voiceOption{
		{ID: "700d1ee3-a641-4018-ba6e-899dcadc9e2b", Gender: "female", Tone: "neutral"},
		{ID: "6a16c1f4-462b-44de-998d-ccdaa4125a0a", Gender: "male", Tone: "neutral"},
	}},
	"zh": {Name: "Mandarin", Code: "zh", VoiceOptions: []voiceOption{
		{ID: "e90c6678-f0d3-4767-9883-5d0ecf5894a8", Gender: "female", Tone: "neutral"},
		{ID: "eda5bbff-1ff1-4886-8ef1-4e69a77640a0", Gender: "male", Tone: "neutral"},
	}},
	"ja": {Name: "Japanese", Code: "ja", VoiceOptions: []voiceOption{
		{ID: "2b568345-1d48-4047-b25f-7baccf842eb0", Gender: "female", Tone: "neutral"},
		{ID: "e8a863c6-22c7-4671-86ca-91cacffc038d", Gender: "male", Tone: "neutral"},
	}},
	"hi": {Name: "Hindi", Code: "hi", VoiceOptions: []voiceOption{
		{ID: "95d51f79-c397-46f9-b49a-23763d3eaa2d", Gender: "female", Tone: "neutral"},
		{ID: "ac7ee4fa-25db-420d-bfff-f590d740aeb2", Gender: "male", Tone: "neutral"},
	}},
	"it": {Name: "Italian", Code: "it", VoiceOptions: []voiceOption{
		{ID: "0e21713a-5e9a-428a-bed4-90d410b87f13", Gender: "female", Tone: "neutral"},
		{ID: "408daed0-c597-4c27-aae8-fa0497d644bf", Gender: "male", Tone: "neutral"},
	}},
	"ko": {Name: "Korean", Code: "ko", VoiceOptions: []voiceOption{
		{ID: "29e5f8b4-b953-4160-848f-40fae182235b", Gender: "female", Tone: "neutral"},
		{ID: "57dba6ff-fe3b-479d-836e-06f5a61cb5de", Gender: "male", Tone: "neutral"},
	}},
	"nl": {Name: "Dutch", Code: "nl", VoiceOptions: []voiceOption{
		{ID: "9e8db62d-056f-47f3-b3b6-1b05767f9176", Gender: "female", Tone: "neutral"},
		{ID: "4aa74047-d005-4463-ba2e-a0d9b261fb87", Gender: "male", Tone: "neutral"},
	}},
	"pl": {Name: "Polish", Code: "pl", VoiceOptions: []voiceOption{
		{ID: "575a5d29-1fdc-4d4e-9afa-5a9a71759864", Gender: "female", Tone: "neutral"},
		{ID: "82a7fc13-2927-4e42-9b8a-bb1f9e506521", Gender: "male", Tone: "neutral"},
	}},
	"ru": {Name: "Russian", Code: "ru", VoiceOptions: []voiceOption{
		{ID: "779673f3-895f-4935-b6b5-b031dc78b319", Gender: "female", Tone: "neutral"},
		{ID: "2b3bb17d-26b9-421f-b8ca-1dd92332279f", Gender: "male", Tone: "neutral"},
	}},
	"sv": {Name: "Swedish", Code: "sv", VoiceOptions: []voiceOption{
		{ID: "f852eb8d-a177-48cd-bf63-7e4dcab61a36", Gender: "female", Tone: "neutral"},
		{ID: "38a146c3-69d7-40ad-aada-76d5a2621758", Gender: "male", Tone: "neutral"},
	}},
	"tr": {Name: "Turkish", Code: "tr", VoiceOptions: []voiceOption{
		{ID: "39f753ef-b0eb-41cd-aa53-2f3c284f948f", Gender: "female", Tone: "neutral"},
		{ID: "5a31e4fb-f823-4359-aa91-82c0ae9a991c", Gender: "male", Tone: "neutral"},
	}},
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	const route = "voices"
	if !s.validate(w, r, route) {
		return
	}
	s.countRequest(route, http.StatusOK)
	respondJSON(w, http.StatusOK, voiceCatalog)
}
