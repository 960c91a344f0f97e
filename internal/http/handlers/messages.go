package handlers

const (
	codeBadRequest        = "bad_request"
	codeValidation        = "validation_failed"
	codeTooLarge          = "payload_too_large"
	codeUnknownTool       = "unknown_tool"
	codeUnknownPreset     = "unknown_preset"
	codeNotFound          = "not_found"
	codeRunBusy           = "run_busy"
	codeInvalidTransition = "invalid_transition"
	codeInternal          = "internal"
)

var messages = map[string]map[string]string{
	"en": {
		codeBadRequest:        "The request could not be read.",
		codeValidation:        "Some inputs or settings are invalid.",
		codeTooLarge:          "The upload is too large.",
		codeUnknownTool:       "Tool not found.",
		codeUnknownPreset:     "Preset not found for this tool.",
		codeNotFound:          "Run not found.",
		codeRunBusy:           "The run is still processing.",
		codeInvalidTransition: "Reset the run before starting it again.",
		codeInternal:          "Something went wrong. Please try again.",
	},
	"id": {
		codeBadRequest:        "Permintaan tidak dapat dibaca.",
		codeValidation:        "Beberapa berkas atau pengaturan tidak valid.",
		codeTooLarge:          "Unggahan terlalu besar.",
		codeUnknownTool:       "Alat tidak ditemukan.",
		codeUnknownPreset:     "Preset tidak ditemukan untuk alat ini.",
		codeNotFound:          "Proses tidak ditemukan.",
		codeRunBusy:           "Proses masih berjalan.",
		codeInvalidTransition: "Reset proses sebelum memulainya lagi.",
		codeInternal:          "Terjadi kesalahan. Silakan coba lagi.",
	},
}

func message(locale, code string) string {
	if m, ok := messages[locale][code]; ok {
		return m
	}
	if m, ok := messages["en"][code]; ok {
		return m
	}
	return code
}
