package handlers

// User-facing messages, keyed by message id then locale. The product ships
// in Brazilian Portuguese with English as the neutral fallback.
var messages = map[string]map[string]string{
	"no_credits": {
		"en": "You have no credits left. Please purchase a subscription.",
		"pt": "Você não tem créditos restantes. Por favor, adquira uma assinatura.",
	},
	"file_too_large": {
		"en": "File size exceeds the maximum limit of 15MB.",
		"pt": "O tamanho do arquivo excede o limite máximo de 15MB.",
	},
	"unsupported_media": {
		"en": "Only image files are allowed.",
		"pt": "Apenas arquivos de imagem são permitidos.",
	},
	"enhance_failed": {
		"en": "Failed to enhance the image. Please try again.",
		"pt": "Falha ao aprimorar a imagem. Por favor, tente novamente.",
	},
}

func localize(locale, key string) string {
	byLocale, ok := messages[key]
	if !ok {
		return key
	}
	if locale != "pt" {
		locale = "en"
	}
	if msg, ok := byLocale[locale]; ok {
		return msg
	}
	return byLocale["en"]
}
