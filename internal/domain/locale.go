package domain

// Supported storefront locales.
const (
	LocaleRO = "ro"
	LocaleEN = "en"
)

// NormalizeLocale maps anything unsupported to Romanian, the storefront default.
func NormalizeLocale(locale string) string {
	switch locale {
	case LocaleEN:
		return LocaleEN
	default:
		return LocaleRO
	}
}

func pick(ro bool, roText, enText string) string {
	if ro {
		return roText
	}
	return enText
}
