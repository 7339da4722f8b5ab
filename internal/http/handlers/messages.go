package handlers

// User-facing error strings per locale. Provider failure messages are passed
// through verbatim and never localized.
var messages = map[string]map[string]string{
	"en": {
		"bad_request":       "invalid request payload",
		"unsupported_model": "unsupported service or model",
		"not_found":         "task not found",
		"provider_error":    "generation provider rejected the request",
		"internal":          "internal error",
	},
	"id": {
		"bad_request":       "payload permintaan tidak valid",
		"unsupported_model": "layanan atau model tidak didukung",
		"not_found":         "task tidak ditemukan",
		"provider_error":    "penyedia generasi menolak permintaan",
		"internal":          "kesalahan internal",
	},
}

func localizedMessage(locale, code string) string {
	if byCode, ok := messages[locale]; ok {
		if msg, ok := byCode[code]; ok {
			return msg
		}
	}
	if msg, ok := messages["en"][code]; ok {
		return msg
	}
	return code
}
